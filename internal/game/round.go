package game

import (
	"sync"
)

// Options configure a round.
type Options struct {
	// Interactive is false when the client has no canvas surface. Such a
	// round ignores input and runs as a plain countdown, stage-bound games
	// included.
	Interactive bool
	// Countdown overrides the catalog countdown in seconds. Zero keeps the default.
	Countdown int
}

// Round is one play-through of a mini-game. It is safe for concurrent use.
type Round struct {
	mu sync.Mutex

	info        Info
	content     content
	interactive bool
	timed       bool
	countdown   int

	state     State
	finishing bool
	score     int
	remaining int

	onComplete func(score int)
	done       chan struct{}
}

// NewRound creates a round in the waiting state.
func NewRound(t Type, opts Options) (*Round, error) {
	info, ok := Lookup(t)
	if !ok {
		return nil, ErrUnknownGame
	}
	timed := info.Policy == PolicyTimer || !opts.Interactive
	countdown := info.Countdown
	if countdown == 0 {
		countdown = UnattendedCountdown
	}
	if opts.Countdown > 0 && timed {
		countdown = opts.Countdown
	}

	r := &Round{
		info:        info,
		content:     newContent(t),
		interactive: opts.Interactive,
		timed:       timed,
		countdown:   countdown,
		state:       StateWaiting,
		done:        make(chan struct{}),
	}
	r.content.reset()
	return r, nil
}

// Game returns the round's game type.
func (r *Round) Game() Type { return r.info.Type }

// Policy returns the round's termination policy.
func (r *Round) Policy() Policy { return r.info.Policy }

// Timed reports whether the round ends on a countdown.
func (r *Round) Timed() bool { return r.timed }

// OnComplete registers the completion callback. It fires at most once per
// Start, outside the round lock.
func (r *Round) OnComplete(fn func(score int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// Start resets the round to a fresh playing state. Calling Start on a
// finished round begins a new play-through.
func (r *Round) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StatePlaying {
		return
	}
	r.finishing = false
	if r.state == StateCompleted {
		r.done = make(chan struct{})
	}
	r.content.reset()
	r.score = 0
	r.remaining = r.countdown
	r.state = StatePlaying
}

// Handle applies a pointer input. It reports whether the input was accepted;
// input outside the playing state or on a non-interactive round is ignored.
func (r *Round) Handle(in Input) bool {
	r.mu.Lock()
	if r.state != StatePlaying || r.finishing || !r.interactive {
		r.mu.Unlock()
		return false
	}

	delta, finished := r.content.handle(in)
	r.score += delta
	if r.score < 0 {
		r.score = 0
	}

	var fire func()
	if finished && r.info.Policy == PolicyStage {
		fire = r.completeLocked()
	}
	r.mu.Unlock()

	if fire != nil {
		fire()
	}
	return true
}

// Tick advances the countdown by one second. It reports whether the round
// completed on this tick. Interactive stage-bound rounds ignore ticks.
func (r *Round) Tick() bool {
	r.mu.Lock()
	if r.state != StatePlaying || r.finishing || !r.timed {
		r.mu.Unlock()
		return false
	}

	r.remaining--
	var fire func()
	if r.remaining <= 0 {
		r.remaining = 0
		fire = r.completeLocked()
	}
	r.mu.Unlock()

	if fire == nil {
		return false
	}
	fire()
	return true
}

// Stop tears the round down without firing completion. It reports whether
// the round was still playing. A round whose completion callback is running
// is left to finish.
func (r *Round) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateCompleted || r.finishing {
		return false
	}
	wasPlaying := r.state == StatePlaying
	r.state = StateCompleted
	close(r.done)
	return wasPlaying
}

// completeLocked freezes the round and returns the completion to run once
// the lock is released. The round reads as completed, and Done is closed,
// only after the callback has returned.
func (r *Round) completeLocked() func() {
	r.finishing = true
	fn, score := r.onComplete, r.score
	return func() {
		if fn != nil {
			fn(score)
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.finishing = false
		r.state = StateCompleted
		close(r.done)
	}
}

// Done is closed when the current play-through ends, by completion or Stop.
func (r *Round) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// State returns the lifecycle state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Score returns the current score.
func (r *Round) Score() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score
}

// Snapshot returns the renderable state of the round.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Game:        r.info.Type,
		Policy:      r.info.Policy,
		State:       r.state,
		Score:       r.score,
		Interactive: r.interactive,
	}
	if r.timed {
		s.Remaining = r.remaining
		if r.state == StateWaiting {
			s.Remaining = r.countdown
		}
	}
	r.content.fill(&s)
	return s
}
