// Package scheduler posts the daily class digest to the teacher channel.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aimd54/planet-heroes/internal/cache"
	"github.com/aimd54/planet-heroes/internal/config"
	prommetrics "github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/internal/notify"
	"github.com/aimd54/planet-heroes/internal/service/analytics"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// lockTTL bounds how long one replica holds the digest for a given day.
const lockTTL = 23 * time.Hour

// OverviewSource interface for class roll-ups.
type OverviewSource interface {
	ClassOverview(ctx context.Context) (*analytics.Overview, error)
}

// Notifier interface for the teacher channel.
type Notifier interface {
	SendClassDigest(ctx context.Context, d notify.Digest) error
}

// Service handles daily digest scheduling.
type Service struct {
	config    *config.SchedulerConfig
	analytics OverviewSource
	notifier  Notifier
	lock      cache.Cache
	log       *logger.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// NewService creates a new scheduler service. lock may be nil, in which case
// every replica posts its own digest.
func NewService(
	cfg *config.SchedulerConfig,
	analyticsService *analytics.Service,
	notifyClient *notify.Client,
	lock cache.Cache,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(cfg, analyticsService, notifyClient, lock, log)
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(cfg *config.SchedulerConfig, overview OverviewSource, notifier Notifier, lock cache.Cache, log *logger.Logger) *Service {
	return &Service{
		config:    cfg,
		analytics: overview,
		notifier:  notifier,
		lock:      lock,
		log:       log,
		now:       time.Now,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.runDailyDigest(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register daily digest job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Timezone).
		Str("time", s.config.DigestTime).
		Bool("skip_weekends", s.config.SkipWeekends).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.DigestTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.DigestTime)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	if s.config.SkipWeekends {
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// lockKey is the per-day dedupe key for the digest.
func lockKey(day time.Time) string {
	return "scheduler:digest:" + day.Format("2006-01-02")
}

// acquire reports whether this replica should post today's digest. Lock
// store errors fail open.
func (s *Service) acquire(ctx context.Context, day time.Time) bool {
	if s.lock == nil {
		return true
	}
	ok, err := s.lock.SetNX(ctx, lockKey(day), "1", lockTTL)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to acquire digest lock, posting anyway")
		return true
	}
	return ok
}

// runDailyDigest executes the daily digest job.
func (s *Service) runDailyDigest(ctx context.Context) {
	start := time.Now()

	defer func() {
		prommetrics.ObserveSchedulerJobDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun()
	}()

	now := s.now()
	if !s.acquire(ctx, now) {
		s.log.Debug().Msg("Digest already posted by another replica")
		prommetrics.RecordSchedulerJobRun("skipped")
		return
	}

	s.log.Info().Msg("Running daily digest job")

	overview, err := s.analytics.ClassOverview(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compute class overview")
		prommetrics.RecordSchedulerJobRun("error")
		prommetrics.RecordSchedulerNotificationFailed("query_error")
		return
	}

	sendStart := time.Now()
	if err := s.notifier.SendClassDigest(ctx, buildDigest(overview, now)); err != nil {
		s.log.Error().
			Err(err).
			Dur("send_duration", time.Since(sendStart)).
			Msg("Failed to send daily digest")
		prommetrics.RecordSchedulerJobRun("error")
		prommetrics.RecordSchedulerNotificationFailed("webhook_error")
		return
	}

	prommetrics.RecordSchedulerJobRun("success")
	s.log.Info().
		Int("students", overview.TotalStudents).
		Int("active_today", overview.ActiveToday).
		Dur("total_duration", time.Since(start)).
		Msg("Successfully sent daily digest")
}
