package game

import (
	"context"
	"time"
)

// Loop drives a playing round: a frame ticker publishes snapshots and, for
// timed rounds, a one second ticker advances the countdown. Both
// tickers are released on every exit path.
type Loop struct {
	round   *Round
	clock   Clock
	frame   time.Duration
	onFrame func(Snapshot)
}

// NewLoop creates a loop for a round. onFrame may be nil.
func NewLoop(r *Round, clock Clock, frame time.Duration, onFrame func(Snapshot)) *Loop {
	if clock == nil {
		clock = RealClock()
	}
	if frame <= 0 {
		frame = 100 * time.Millisecond
	}
	return &Loop{round: r, clock: clock, frame: frame, onFrame: onFrame}
}

// Run starts the round if it is waiting and blocks until the round completes,
// is stopped, or ctx is cancelled. Cancellation stops the round without
// firing completion and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.round.Start()
	done := l.round.Done()

	frames := l.clock.NewTicker(l.frame)
	defer frames.Stop()

	var countdown <-chan time.Time
	if l.round.Timed() {
		seconds := l.clock.NewTicker(time.Second)
		defer seconds.Stop()
		countdown = seconds.C()
	}

	for {
		select {
		case <-ctx.Done():
			l.round.Stop()
			return ctx.Err()
		case <-done:
			l.publish()
			return nil
		case <-countdown:
			l.round.Tick()
		case <-frames.C():
			l.publish()
		}
	}
}

func (l *Loop) publish() {
	if l.onFrame != nil {
		l.onFrame(l.round.Snapshot())
	}
}
