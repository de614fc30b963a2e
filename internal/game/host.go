package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aimd54/planet-heroes/internal/metrics"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// Completion is emitted when a hosted round completes.
type Completion struct {
	RoundID string
	UserID  string // empty for guests
	Game    Type
	Score   int
	At      time.Time
}

// CompletionHandler processes a completed round. The value it returns is kept
// with the round and exposed through Host.Outcome.
type CompletionHandler func(ctx context.Context, c Completion) any

// HostConfig configures a Host.
type HostConfig struct {
	Clock         Clock
	FrameInterval time.Duration
	Countdowns    map[Type]int
	// Retention is how long a finished round stays readable.
	Retention time.Duration
	// MaxLifetime bounds how long a round may stay unfinished. Expired
	// rounds are stopped and forgotten without completing.
	MaxLifetime time.Duration
}

type hosted struct {
	id       string
	owner    string
	round    *Round
	cancel   context.CancelFunc
	outcome  any
	finished time.Time
	subs     map[int]chan Snapshot
	nextSub  int
}

// Host owns the active rounds of all players.
type Host struct {
	mu     sync.RWMutex
	rounds map[string]*hosted

	cfg        HostConfig
	onComplete CompletionHandler
	log        *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHost creates a round host. onComplete may be nil.
func NewHost(cfg HostConfig, onComplete CompletionHandler, log *logger.Logger) *Host {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		rounds:     make(map[string]*hosted),
		cfg:        cfg,
		onComplete: onComplete,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// StartRound creates and starts a round for a player and returns its id.
func (h *Host) StartRound(userID string, t Type, interactive bool) (string, Snapshot, error) {
	opts := Options{Interactive: interactive, Countdown: h.cfg.Countdowns[t]}
	r, err := NewRound(t, opts)
	if err != nil {
		return "", Snapshot{}, err
	}

	id := uuid.New().String()
	ctx, cancel := context.WithTimeout(h.ctx, h.cfg.MaxLifetime)
	hr := &hosted{id: id, owner: userID, round: r, cancel: cancel, subs: make(map[int]chan Snapshot)}

	r.OnComplete(func(score int) { h.complete(hr, score) })

	h.mu.Lock()
	h.reapLocked(time.Now())
	h.rounds[id] = hr
	h.mu.Unlock()

	loop := NewLoop(r, h.cfg.Clock, h.cfg.FrameInterval, func(s Snapshot) { h.broadcast(hr, s) })
	r.Start()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		err := loop.Run(ctx)
		h.closeSubs(hr)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			h.expire(hr)
		case err != nil && !errors.Is(err, context.Canceled):
			h.log.Warn().Err(err).Str("round_id", id).Msg("Round loop ended with error")
		}
		h.updateGauge(t)
	}()

	metrics.RecordGameStarted(string(t))
	h.updateGauge(t)
	h.log.Debug().Str("round_id", id).Str("user_id", userID).Str("game", string(t)).Bool("interactive", interactive).Msg("Round started")

	snap := r.Snapshot()
	snap.RoundID = id
	return id, snap, nil
}

func (h *Host) complete(hr *hosted, score int) {
	c := Completion{RoundID: hr.id, UserID: hr.owner, Game: hr.round.Game(), Score: score, At: time.Now()}

	var outcome any
	if h.onComplete != nil {
		outcome = h.onComplete(h.ctx, c)
	}

	h.mu.Lock()
	hr.outcome = outcome
	hr.finished = c.At
	h.mu.Unlock()

	mode := "player"
	if hr.owner == "" {
		mode = "guest"
	}
	metrics.RecordGameCompleted(string(c.Game), mode, score)
	h.log.Info().Str("round_id", hr.id).Str("user_id", hr.owner).Str("game", string(c.Game)).Int("score", score).Msg("Round completed")
}

func (h *Host) lookup(id, userID string) (*hosted, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hr, ok := h.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	if hr.owner != "" && hr.owner != userID {
		return nil, ErrNotRoundOwner
	}
	return hr, nil
}

// Input forwards a pointer event to a round and returns the resulting snapshot.
func (h *Host) Input(id, userID string, in Input) (Snapshot, error) {
	hr, err := h.lookup(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if hr.round.State() != StatePlaying {
		return Snapshot{}, ErrRoundFinished
	}
	hr.round.Handle(in)
	snap := hr.round.Snapshot()
	snap.RoundID = id
	return snap, nil
}

// Snapshot returns the current state of a round.
func (h *Host) Snapshot(id, userID string) (Snapshot, error) {
	hr, err := h.lookup(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := hr.round.Snapshot()
	snap.RoundID = id
	return snap, nil
}

// Outcome returns the completion handler's result for a finished round.
func (h *Host) Outcome(id, userID string) (any, bool, error) {
	hr, err := h.lookup(id, userID)
	if err != nil {
		return nil, false, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return hr.outcome, !hr.finished.IsZero(), nil
}

// expire forgets a round that outlived MaxLifetime.
func (h *Host) expire(hr *hosted) {
	h.mu.Lock()
	if !hr.finished.IsZero() {
		h.mu.Unlock()
		return
	}
	delete(h.rounds, hr.id)
	h.mu.Unlock()

	metrics.RecordGameAbandoned(string(hr.round.Game()))
	h.log.Info().Str("round_id", hr.id).Str("user_id", hr.owner).Dur("max_lifetime", h.cfg.MaxLifetime).Msg("Round expired unfinished")
}

// Abandon stops a round without completing it and forgets it.
func (h *Host) Abandon(id, userID string) error {
	hr, err := h.lookup(id, userID)
	if err != nil {
		return err
	}
	if hr.round.Stop() {
		metrics.RecordGameAbandoned(string(hr.round.Game()))
	}
	hr.cancel()

	h.mu.Lock()
	delete(h.rounds, id)
	h.mu.Unlock()

	h.updateGauge(hr.round.Game())
	return nil
}

// Watch subscribes to frame snapshots of a round. The channel is closed when
// the round ends or ctx is done.
func (h *Host) Watch(ctx context.Context, id, userID string) (<-chan Snapshot, error) {
	hr, err := h.lookup(id, userID)
	if err != nil {
		return nil, err
	}

	ch := make(chan Snapshot, 1)
	h.mu.Lock()
	if hr.subs == nil {
		h.mu.Unlock()
		close(ch)
		return ch, nil
	}
	key := hr.nextSub
	hr.nextSub++
	hr.subs[key] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := hr.subs[key]; ok {
			delete(hr.subs, key)
			close(sub)
		}
	}()
	return ch, nil
}

func (h *Host) broadcast(hr *hosted, s Snapshot) {
	s.RoundID = hr.id
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range hr.subs {
		// Slow watchers miss frames.
		select {
		case ch <- s:
		default:
		}
	}
}

func (h *Host) closeSubs(hr *hosted) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, ch := range hr.subs {
		delete(hr.subs, key)
		close(ch)
	}
	hr.subs = nil
}

// Active returns the number of rounds currently playing.
func (h *Host) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, hr := range h.rounds {
		if hr.round.State() == StatePlaying {
			n++
		}
	}
	return n
}

func (h *Host) updateGauge(t Type) {
	h.mu.RLock()
	n := 0
	for _, hr := range h.rounds {
		if hr.round.Game() == t && hr.round.State() == StatePlaying {
			n++
		}
	}
	h.mu.RUnlock()
	metrics.SetActiveRounds(string(t), n)
}

// reapLocked forgets rounds that finished longer than the retention ago.
func (h *Host) reapLocked(now time.Time) {
	for id, hr := range h.rounds {
		if !hr.finished.IsZero() && now.Sub(hr.finished) > h.cfg.Retention {
			delete(h.rounds, id)
		}
	}
}

// Shutdown stops every round loop and waits for them to exit.
func (h *Host) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
