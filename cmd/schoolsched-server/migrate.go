package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"schoolsched/internal/store/sqlstore"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *migrate.Migrate, log *slog.Logger) error {
					if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("migrate up: %w", err)
					}
					log.Info("migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *migrate.Migrate, log *slog.Logger) error {
					if _, _, err := m.Version(); errors.Is(err, migrate.ErrNilVersion) {
						log.Info("nothing to roll back")
						return nil
					}
					if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("migrate down: %w", err)
					}
					log.Info("migration rolled back")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *migrate.Migrate, _ *slog.Logger) error {
					version, dirty, err := m.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						_, err = fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
						return err
					}
					if err != nil {
						return fmt.Errorf("migrate version: %w", err)
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", version, dirty)
					return err
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(m *migrate.Migrate, log *slog.Logger) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	driver, err := sqlstore.ParseDriver(cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	log.Info("opening migrator", databaseLogArgs(driver, cfg.DatabaseURL)...)
	m, err := sqlstore.NewMigrator(driver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			log.Warn("migrator close failed", slog.Any("err", err))
		}
	}()
	return fn(m, log)
}
