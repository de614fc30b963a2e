// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the Planet Heroes server.
var (
	// Counters.
	GamesStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_started_total",
			Help: "Total number of mini-game rounds started",
		},
		[]string{"game"},
	)

	GamesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_completed_total",
			Help: "Total number of completed mini-game rounds",
		},
		[]string{"game", "mode"}, // mode: player or guest
	)

	GamesAbandonedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_abandoned_total",
			Help: "Total number of rounds torn down before completion",
		},
		[]string{"game"},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge", "kind"}, // kind: game or meta
	)

	ProgressionStoreFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_store_failures_total",
			Help: "Total number of failed progression writes, per store and operation",
		},
		[]string{"store", "op"},
	)

	OverlayFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_fallbacks_total",
			Help: "Total number of profile reads served from the local overlay",
		},
		[]string{"op"},
	)

	LeaderboardQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_queries_total",
			Help: "Total number of leaderboard page queries",
		},
		[]string{"status"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total number of sign-in and sign-out transitions",
		},
		[]string{"kind"},
	)

	// Gauges.
	ActiveRounds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_rounds",
			Help: "Current number of rounds being played",
		},
		[]string{"game"},
	)

	// Histograms.
	GameScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "game_score",
			Help:    "Final score of completed rounds",
			Buckets: prometheus.LinearBuckets(0, 25, 10), // 0 to 225 points
		},
		[]string{"game"},
	)

	AnalyticsScanDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_scan_duration_seconds",
			Help:    "Time taken to scan student profiles for the class overview",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"status"},
	)

	SchedulerNotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_notifications_failed_total",
			Help: "Total failed digest notification attempts",
		},
		[]string{"reason"},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute the class digest job",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~13s
		},
	)
)

// RecordGameStarted records a started round.
func RecordGameStarted(game string) {
	GamesStartedTotal.WithLabelValues(game).Inc()
}

// RecordGameCompleted records a completed round and its final score.
func RecordGameCompleted(game, mode string, score int) {
	GamesCompletedTotal.WithLabelValues(game, mode).Inc()
	GameScore.WithLabelValues(game).Observe(float64(score))
}

// RecordGameAbandoned records a round stopped before completion.
func RecordGameAbandoned(game string) {
	GamesAbandonedTotal.WithLabelValues(game).Inc()
}

// RecordBadgeAwarded records a badge award event.
func RecordBadgeAwarded(badge, kind string) {
	BadgesAwardedTotal.WithLabelValues(badge, kind).Inc()
}

// RecordStoreFailure records a failed progression write.
func RecordStoreFailure(store, op string) {
	ProgressionStoreFailuresTotal.WithLabelValues(store, op).Inc()
}

// RecordOverlayFallback records a read served from the local overlay.
func RecordOverlayFallback(op string) {
	OverlayFallbacksTotal.WithLabelValues(op).Inc()
}

// RecordLeaderboardQuery records a leaderboard page query.
func RecordLeaderboardQuery(status string) {
	LeaderboardQueriesTotal.WithLabelValues(status).Inc()
}

// RecordSessionTransition records a sign-in or sign-out.
func RecordSessionTransition(kind string) {
	SessionTransitionsTotal.WithLabelValues(kind).Inc()
}

// SetActiveRounds sets the number of rounds being played for a game.
func SetActiveRounds(game string, count int) {
	ActiveRounds.WithLabelValues(game).Set(float64(count))
}

// ObserveAnalyticsScan observes the duration of a class overview scan.
func ObserveAnalyticsScan(seconds float64) {
	AnalyticsScanDurationSeconds.Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(status string) {
	SchedulerJobsRunTotal.WithLabelValues(status).Inc()
}

// RecordSchedulerNotificationFailed records a failed notification attempt.
func RecordSchedulerNotificationFailed(reason string) {
	SchedulerNotificationsFailedTotal.WithLabelValues(reason).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun() {
	SchedulerLastRunTimestamp.SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(seconds float64) {
	SchedulerJobDurationSeconds.Observe(seconds)
}
