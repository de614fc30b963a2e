package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aimd54/planet-heroes/internal/config"
	"github.com/aimd54/planet-heroes/internal/notify"
	"github.com/aimd54/planet-heroes/internal/service/analytics"
	"github.com/aimd54/planet-heroes/pkg/logger"
	"github.com/aimd54/planet-heroes/test/mocks"
)

func TestBuildCronExpression(t *testing.T) {
	tests := []struct {
		name         string
		time         string
		skipWeekends bool
		want         string
		wantErr      bool
	}{
		{name: "daily at 4pm", time: "16:00", want: "0 16 * * *"},
		{name: "weekdays at 4pm", time: "16:00", skipWeekends: true, want: "0 16 * * 1-5"},
		{name: "daily at 14:30", time: "14:30", want: "30 14 * * *"},
		{name: "invalid format no colon", time: "1600", wantErr: true},
		{name: "invalid hour", time: "25:00", wantErr: true},
		{name: "invalid minute", time: "09:60", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Service{config: &config.SchedulerConfig{DigestTime: tt.time, SkipWeekends: tt.skipWeekends}}

			got, err := s.buildCronExpression()
			if (err != nil) != tt.wantErr {
				t.Errorf("buildCronExpression() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("buildCronExpression() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildDigest(t *testing.T) {
	day := time.Date(2026, 4, 20, 16, 0, 0, 0, time.UTC)
	overview := &analytics.Overview{
		TotalStudents: 5,
		AverageScore:  90,
		TotalBadges:   4,
		ActiveToday:   3,
		RoundsToday:   11,
		TopStudents: []analytics.StudentSummary{
			{Rank: 1, Name: "Bob", TotalPoints: 300, BadgeCount: 2},
			{Rank: 2, Email: "ada@school.test", TotalPoints: 200, BadgeCount: 1},
			{Rank: 3, Name: "Cy", TotalPoints: 100},
			{Rank: 4, Name: "Di", TotalPoints: 50},
		},
	}

	d := buildDigest(overview, day)

	if len(d.Top) != digestPodium {
		t.Fatalf("buildDigest() returned %d students, want %d", len(d.Top), digestPodium)
	}
	if d.Top[1].Name != "ada@school.test" {
		t.Errorf("nameless student should fall back to email, got %q", d.Top[1].Name)
	}
	if d.RoundsToday != 11 || d.ActiveToday != 3 || !d.Date.Equal(day) {
		t.Errorf("unexpected digest totals: %+v", d)
	}
}

func TestBuildDigest_EmptyClass(t *testing.T) {
	d := buildDigest(&analytics.Overview{}, time.Now())
	if len(d.Top) != 0 {
		t.Errorf("expected no students, got %d", len(d.Top))
	}
}

type stubOverview struct {
	overview *analytics.Overview
	err      error
	calls    int
}

func (s *stubOverview) ClassOverview(context.Context) (*analytics.Overview, error) {
	s.calls++
	return s.overview, s.err
}

type stubNotifier struct {
	sent []notify.Digest
	err  error
}

func (s *stubNotifier) SendClassDigest(_ context.Context, d notify.Digest) error {
	s.sent = append(s.sent, d)
	return s.err
}

func newTestService(overview *stubOverview, notifier *stubNotifier, lock *mocks.MockCache) *Service {
	s := NewServiceWithInterfaces(&config.SchedulerConfig{Enabled: true, DigestTime: "16:00", Timezone: "UTC"}, overview, notifier, nil, logger.Nop())
	if lock != nil {
		s.lock = lock
	}
	s.now = func() time.Time { return time.Date(2026, 4, 20, 16, 0, 0, 0, time.UTC) }
	return s
}

func TestRunDailyDigest_PostsOncePerDay(t *testing.T) {
	overview := &stubOverview{overview: &analytics.Overview{TotalStudents: 2}}
	notifier := &stubNotifier{}
	lock := mocks.NewMockCache()
	s := newTestService(overview, notifier, lock)

	s.runDailyDigest(context.Background())
	s.runDailyDigest(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.sent))
	}
	if overview.calls != 1 {
		t.Errorf("overview computed %d times, want 1", overview.calls)
	}
	if !lock.Has("scheduler:digest:2026-04-20") {
		t.Error("expected digest lock to be held")
	}
}

func TestRunDailyDigest_LockErrorFailsOpen(t *testing.T) {
	overview := &stubOverview{overview: &analytics.Overview{}}
	notifier := &stubNotifier{}
	lock := mocks.NewMockCache()
	lock.Err = errors.New("redis down")
	s := newTestService(overview, notifier, lock)

	s.runDailyDigest(context.Background())

	if len(notifier.sent) != 1 {
		t.Errorf("expected digest to be posted despite lock error, got %d", len(notifier.sent))
	}
}

func TestRunDailyDigest_OverviewError(t *testing.T) {
	overview := &stubOverview{err: errors.New("firestore unavailable")}
	notifier := &stubNotifier{}
	s := newTestService(overview, notifier, nil)

	s.runDailyDigest(context.Background())

	if len(notifier.sent) != 0 {
		t.Errorf("expected no digest, got %d", len(notifier.sent))
	}
}

func TestStart_Disabled(t *testing.T) {
	s := NewServiceWithInterfaces(&config.SchedulerConfig{Enabled: false}, &stubOverview{}, &stubNotifier{}, nil, logger.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.cron != nil {
		t.Error("cron should not be created when disabled")
	}
	s.Stop()
}

func TestStart_InvalidTimezone(t *testing.T) {
	s := NewServiceWithInterfaces(&config.SchedulerConfig{Enabled: true, DigestTime: "16:00", Timezone: "Mars/Olympus"}, &stubOverview{}, &stubNotifier{}, nil, logger.Nop())
	if err := s.Start(); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestStart_RegistersJob(t *testing.T) {
	s := NewServiceWithInterfaces(&config.SchedulerConfig{Enabled: true, DigestTime: "16:00", Timezone: "UTC"}, &stubOverview{}, &stubNotifier{}, nil, logger.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("expected 1 cron entry, got %d", n)
	}
}
