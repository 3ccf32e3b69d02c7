package database

import (
	"context"
	"fmt"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/config"
	"farmmarket/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectAttempts сколько раз пытаемся подключиться при старте (БД в Docker может подниматься дольше сервиса)
const ConnectAttempts = 10

// ConnectPostgres открывает пул gorm и проверяет соединение
func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= ConnectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			if err = configurePool(ctx, db, cfg.MaxConns); err == nil {
				return db, nil
			}
		}

		logger.Warn().
			Int("attempt", attempt).
			Err(err).
			Msg("Failed to connect to PostgreSQL, retrying...")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", ConnectAttempts, err)
}

func configurePool(ctx context.Context, db *gorm.DB, maxConns int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return err
	}

	if maxConns <= 0 {
		maxConns = 25
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/5, 1))
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)
	return nil
}

// PoolStats возвращает функцию, отдающую состояние пула для метрик
func PoolStats(db *gorm.DB) func() (idle, inUse int) {
	return func() (int, int) {
		sqlDB, err := db.DB()
		if err != nil {
			return 0, 0
		}
		stats := sqlDB.Stats()
		return stats.Idle, stats.InUse
	}
}

// ClosePostgres закрывает пул соединений
func ClosePostgres(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close PostgreSQL pool")
	}
}
