package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/allisson/publishq/migrations"
)

// RunMigrations applies all pending migrations embedded in the binary. The
// migration set is chosen from driver (postgres or mysql). Returns nil when
// the schema is already up to date.
func RunMigrations(logger *slog.Logger, driver, connString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	var dir string
	switch driver {
	case "postgres":
		dir = "postgresql"
	case "mysql":
		dir = "mysql"
		if !strings.HasPrefix(connString, "mysql://") {
			connString = "mysql://" + connString
		}
	default:
		return fmt.Errorf("failed to create migrate instance: unsupported driver %q", driver)
	}

	src, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, connString)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
