package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"schoolsched/internal/config"
	"schoolsched/internal/logger"
	"schoolsched/internal/store/sqlstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "schoolsched-server",
		Short:        "Classroom and class-session scheduler",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

// loadEnvFile applies a dotenv file without overriding variables already set.
// A missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loadConfig reads configuration and builds the process logger from it.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New(cmd.ErrOrStderr(), "info")
		log.Error("config load failed", slog.Any("err", err))
		return config.Config{}, nil, err
	}
	log := logger.New(cmd.OutOrStdout(), cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}

func databaseLogArgs(driver sqlstore.Driver, databaseURL string) []any {
	if driver == sqlstore.DriverSQLite {
		return []any{
			slog.String("db_driver", string(driver)),
			slog.String("db_path", sqlstore.SQLitePath(databaseURL)),
		}
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_driver", string(driver)), slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_driver", string(driver)),
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
