// Package stats keeps a derived PlayerProfile consistent with four record
// sources.
//
// The Engine owns a single goroutine. Change notifications from any goroutine
// are forwarded to it through a one-slot channel; each one restarts a quiet
// window, and only when the window elapses without further notices does the
// owner read all four sources and publish a new profile. Publication is a
// single atomic pointer swap, so readers never observe a partially updated
// profile.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attaboy/lifestats/internal/attribute"
	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/leveling"
)

const (
	// DefaultWindow is the quiet period after the last change notice before
	// a recomputation runs.
	DefaultWindow = 100 * time.Millisecond

	defaultReadTimeout = 5 * time.Second
)

// Option customizes an Engine.
type Option func(*Engine)

// WithWindow sets the debounce window. Non-positive values keep the default.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithCurve replaces the default experience curve.
func WithCurve(c leveling.Curve) Option {
	return func(e *Engine) { e.curve = c }
}

// WithWealthScale sets the number of minor currency units per major unit.
func WithWealthScale(minorPerMajor int64) Option {
	return func(e *Engine) {
		if minorPerMajor > 0 {
			e.wealthScale = minorPerMajor
		}
	}
}

// WithClock overrides the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithReadTimeout bounds the time spent reading the four sources.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.readTimeout = d
		}
	}
}

// Engine aggregates the four record sources into a PlayerProfile.
type Engine struct {
	logger      *slog.Logger
	window      time.Duration
	readTimeout time.Duration
	curve       leveling.Curve
	wealthScale int64
	now         func() time.Time

	current    atomic.Pointer[domain.PlayerProfile]
	recomputes atomic.Int64
	kick       chan struct{}

	// deliver serializes publication with listener registration so every
	// listener sees profiles in publication order.
	deliver sync.Mutex

	mu         sync.Mutex
	configured bool
	closed     bool
	sources    Sources
	unsubs     []func()
	listeners  map[uint64]func(domain.PlayerProfile)
	nextID     uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewEngine creates an unconfigured engine. Until Configure runs, Profile
// returns the zero-experience profile.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:      logger,
		window:      DefaultWindow,
		readTimeout: defaultReadTimeout,
		curve:       leveling.DefaultCurve(),
		wealthScale: attribute.DefaultMinorPerMajor,
		now:         time.Now,
		kick:        make(chan struct{}, 1),
		listeners:   make(map[uint64]func(domain.PlayerProfile)),
	}
	for _, opt := range opts {
		opt(e)
	}
	initial := Derive(domain.Snapshot{}, e.curve, e.wealthScale)
	e.current.Store(&initial)
	return e
}

// Configure binds the engine to its sources, subscribes to their change
// notices, runs the first recomputation before returning, and starts the
// owner goroutine. It may be called once. The engine stops when ctx is
// cancelled or Close is called.
func (e *Engine) Configure(ctx context.Context, src Sources) error {
	if err := src.validate(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrConflict("stats engine is closed")
	}
	if e.configured {
		e.mu.Unlock()
		return domain.ErrConflict("stats engine is already configured")
	}
	e.configured = true
	e.sources = src
	for _, n := range src.notifiers() {
		e.unsubs = append(e.unsubs, n.Subscribe(e.notify))
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.recompute(runCtx)
	go e.run(runCtx)

	e.logger.Info("stats engine configured", "debounce", e.window, "max_level", e.curve.MaxLevel)
	return nil
}

// Profile returns the most recently published profile.
func (e *Engine) Profile() domain.PlayerProfile {
	return *e.current.Load()
}

// Recomputations reports how many profiles have been published since
// Configure.
func (e *Engine) Recomputations() int64 {
	return e.recomputes.Load()
}

// Subscribe registers fn to receive every published profile. If a profile has
// already been published, fn is first called with it before Subscribe
// returns, so a late subscriber does not miss the initial recomputation. fn
// must not block, call Subscribe or call Close.
func (e *Engine) Subscribe(fn func(domain.PlayerProfile)) (cancel func()) {
	e.deliver.Lock()
	defer e.deliver.Unlock()

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	published := e.recomputes.Load() > 0
	e.mu.Unlock()

	if published {
		fn(*e.current.Load())
	}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Close releases the source subscriptions and any pending debounce timer and
// waits for the engine goroutine to exit. No recomputation runs after Close
// returns.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	unsubs := e.unsubs
	e.unsubs = nil
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if cancel != nil {
		cancel()
		<-done
	}
	e.logger.Info("stats engine stopped", "recomputations", e.recomputes.Load())
}

// notify is the listener handed to every source. It never blocks: a pending
// signal already covers this one.
func (e *Engine) notify() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	timer := time.NewTimer(e.window)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
			timer.Reset(e.window)
		case <-timer.C:
			if ctx.Err() != nil {
				return
			}
			e.recompute(ctx)
		}
	}
}

// recompute reads the sources and publishes a new profile. On a read failure
// the previous profile stays published.
func (e *Engine) recompute(ctx context.Context) {
	readCtx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()

	snap, err := e.sources.snapshot(readCtx)
	if err != nil {
		e.logger.Warn("stats recompute skipped", "error", err)
		return
	}

	p := Derive(snap, e.curve, e.wealthScale)
	p.ComputedAt = e.now()

	e.deliver.Lock()
	defer e.deliver.Unlock()
	e.current.Store(&p)
	n := e.recomputes.Add(1)

	e.logger.Debug("stats recomputed",
		"recomputation", n,
		"level", p.Level,
		"experience", p.CurrentExperience,
		"strength", p.Strength,
		"intelligence", p.Intelligence,
		"vitality", p.Vitality,
		"wealth", p.Wealth,
	)

	e.mu.Lock()
	listeners := make([]func(domain.PlayerProfile), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

// Derive computes a profile from one snapshot. It is pure: the same snapshot
// always yields the same profile (ComputedAt is left zero).
func Derive(snap domain.Snapshot, curve leveling.Curve, minorPerMajor int64) domain.PlayerProfile {
	lvl := curve.Compute(attribute.TotalExperience(snap.Quests))
	return domain.PlayerProfile{
		Level:             lvl.Level,
		CurrentExperience: lvl.Current,
		ExperienceToNext:  lvl.ToNext,
		Strength:          attribute.Strength(snap.WeeklyExerciseMinutes),
		Intelligence:      attribute.Intelligence(snap.Books),
		Vitality:          attribute.Vitality(snap.Quests),
		Wealth:            attribute.WealthScaled(snap.NetWorthMinor, minorPerMajor),
	}
}
