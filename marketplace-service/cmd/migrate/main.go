package main

import (
	"errors"
	"flag"
	"os"

	"farmmarket/marketplace-service/internal/app/marketplace/config"
	"farmmarket/marketplace-service/internal/app/marketplace/database"
	"farmmarket/marketplace-service/migrations"
	"farmmarket/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
)

func main() {
	var (
		command     string
		steps       int
		databaseURL string
	)

	flag.StringVar(&command, "command", "up", "Migration command: up, down, force, version")
	flag.IntVar(&steps, "steps", 0, "Number of migrations to apply or roll back (0 = all), version for force")
	flag.StringVar(&databaseURL, "database", "", "Database URL (overrides DATABASE_URL and DB_* env)")
	flag.Parse()

	logger.Init("marketplace-migrate", os.Getenv("LOG_LEVEL"))

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		dbCfg, err := config.LoadDatabase()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load database config")
		}
		databaseURL = dbCfg.URL()
	}

	m, err := database.NewMigrator(databaseURL, migrations.FS)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create migrator")
	}
	defer m.Close()

	logger.Info().Str("command", command).Int("steps", steps).Msg("Starting migration")

	switch command {
	case "up":
		err = runUp(m, steps)
	case "down":
		err = runDown(m, steps)
	case "force":
		if steps <= 0 {
			logger.Fatal().Msg("Force command requires -steps with the version number")
		}
		err = m.Force(steps)
	case "version":
		database.LogVersion(m)
		return
	default:
		logger.Fatal().Str("command", command).Msg("Unknown command")
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("No migrations to apply")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Migration failed")
	}

	database.LogVersion(m)
	logger.Info().Msg("Migration completed successfully")
}

func runUp(m *migrate.Migrate, steps int) error {
	if steps > 0 {
		return m.Steps(steps)
	}
	return m.Up()
}

func runDown(m *migrate.Migrate, steps int) error {
	if steps > 0 {
		return m.Steps(-steps)
	}
	return m.Down()
}
