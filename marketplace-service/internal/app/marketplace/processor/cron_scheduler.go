package processor

import (
	"context"
	"fmt"

	"farmmarket/marketplace-service/internal/app/marketplace/service"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// PoolStatsFunc отдает состояние пула соединений к БД (idle, in use)
type PoolStatsFunc func() (idle, inUse int)

// CronScheduler периодически сверяет рейтинги фермеров с одобренными отзывами
type CronScheduler struct {
	cron      *cron.Cron
	ratingSvc service.RatingServiceInterface
	poolStats PoolStatsFunc
}

// NewCronScheduler создает планировщик, poolStats может быть nil
func NewCronScheduler(ratingSvc service.RatingServiceInterface, poolStats PoolStatsFunc) *CronScheduler {
	cl := cronLogger{}
	c := cron.New(
		cron.WithLogger(cl),
		// Долгая сверка не должна накладываться сама на себя
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &CronScheduler{
		cron:      c,
		ratingSvc: ratingSvc,
		poolStats: poolStats,
	}
}

// Start регистрирует задачи и сразу выполняет первую сверку
func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("Starting cron scheduler")

	if _, err := s.cron.AddFunc(schedule, func() { s.reconcile(ctx) }); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	if s.poolStats != nil {
		if _, err := s.cron.AddFunc("@every 15s", s.samplePool); err != nil {
			return fmt.Errorf("failed to schedule pool sampling: %w", err)
		}
	}

	s.cron.Start()

	s.reconcile(ctx)
	return nil
}

func (s *CronScheduler) reconcile(ctx context.Context) {
	processed, err := s.ratingSvc.ReconcileAll(ctx)
	if err != nil {
		logger.Error().Err(err).Int("processed", processed).Msg("Rating reconciliation finished with errors")
		return
	}
	logger.Info().Int("processed", processed).Msg("Rating reconciliation completed")
}

func (s *CronScheduler) samplePool() {
	idle, inUse := s.poolStats()
	metrics.RecordDbPool(metrics.ServiceName, idle, inUse)
}

// Stop останавливает планировщик и ждет завершения запущенных задач
func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}

// cronLogger направляет логи cron в zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
