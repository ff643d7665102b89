package storage

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	log "github.com/freundallein/todo/backend/chassis/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationsTable tracks applied migrations.
const MigrationsTable = "schema_migrations"

// Migrate applies every pending up migration.
func Migrate(dsn string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateDSN(dsn))
	if err != nil {
		return fmt.Errorf("failed to create migrations handler: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.WithFields(log.Fields{
				"event": "migrate_no_change",
			}).Info("schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.WithFields(log.Fields{
		"event":   "migrate_done",
		"version": version,
		"dirty":   dirty,
	}).Info("migrations completed successfully")
	return nil
}

// MigrateDSN converts a postgres dsn into the pgx driver scheme expected by
// golang-migrate, pinning the migrations table.
func MigrateDSN(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			dsn = "pgx://" + strings.TrimPrefix(dsn, prefix)
			break
		}
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "x-migrations-table=" + MigrationsTable
}
