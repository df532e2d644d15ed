package sqlstore

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// NewMigrator builds a migrator over the embedded SQL for driver. The caller
// owns the returned instance and must Close it.
func NewMigrator(driver Driver, databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations/"+string(driver))
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	target, err := migrateURL(driver, databaseURL)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, target)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations. An up-to-date schema is not an error.
func MigrateUp(driver Driver, databaseURL string) error {
	m, err := NewMigrator(driver, databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func closeMigrator(m *migrate.Migrate) {
	_, _ = m.Close()
}

func migrateURL(driver Driver, databaseURL string) (string, error) {
	switch driver {
	case DriverPostgres:
		for _, scheme := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(databaseURL, scheme) {
				return "pgx5://" + strings.TrimPrefix(databaseURL, scheme), nil
			}
		}
		if strings.HasPrefix(databaseURL, "pgx5://") {
			return databaseURL, nil
		}
		return "", fmt.Errorf("postgres migrations need a postgres:// url")
	case DriverSQLite:
		path := SQLitePath(databaseURL)
		if path == "" {
			return "", fmt.Errorf("sqlite database path is required")
		}
		return "sqlite://" + path, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}
