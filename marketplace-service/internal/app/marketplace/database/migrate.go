package database

import (
	"errors"
	"fmt"
	"io/fs"

	"farmmarket/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// NewMigrator создает golang-migrate поверх встроенных SQL файлов
func NewMigrator(databaseURL string, migrations fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations применяет все непримененные миграции
func RunMigrations(databaseURL string, migrations fs.FS) error {
	m, err := NewMigrator(databaseURL, migrations)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	LogVersion(m)
	return nil
}

// LogVersion пишет в лог текущую версию схемы
func LogVersion(m *migrate.Migrate) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info().Msg("No migrations applied yet")
	case err != nil:
		logger.Error().Err(err).Msg("Failed to get migration version")
	default:
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database schema version")
	}
}
