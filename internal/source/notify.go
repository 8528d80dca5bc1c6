package source

import (
	"sync"

	"github.com/attaboy/lifestats/internal/domain"
)

// Broadcaster fans a change signal out to every subscribed listener.
// Listeners run on the goroutine that calls Notify and must not block.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[uint64]func()
	nextID    uint64
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[uint64]func())}
}

// Subscribe adds fn and returns a func that removes it again.
func (b *Broadcaster) Subscribe(fn func()) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[uint64]func())
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
		})
	}
}

// Notify signals every listener once.
func (b *Broadcaster) Notify() {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Set holds one broadcaster per record source, keyed for routing external
// change events.
type Set struct {
	Quests   *Broadcaster
	Books    *Broadcaster
	Exercise *Broadcaster
	Finance  *Broadcaster
}

// NewSet creates a broadcaster for each source.
func NewSet() *Set {
	return &Set{
		Quests:   NewBroadcaster(),
		Books:    NewBroadcaster(),
		Exercise: NewBroadcaster(),
		Finance:  NewBroadcaster(),
	}
}

// Broadcaster returns the broadcaster for kind, or nil for an unknown kind.
func (s *Set) Broadcaster(kind domain.SourceKind) *Broadcaster {
	switch kind {
	case domain.SourceQuests:
		return s.Quests
	case domain.SourceBooks:
		return s.Books
	case domain.SourceExercise:
		return s.Exercise
	case domain.SourceFinance:
		return s.Finance
	default:
		return nil
	}
}

// Dispatch notifies the listeners of kind. It reports false for an unknown kind.
func (s *Set) Dispatch(kind domain.SourceKind) bool {
	b := s.Broadcaster(kind)
	if b == nil {
		return false
	}
	b.Notify()
	return true
}

// DispatchAll notifies every source, used after a gap in change delivery.
func (s *Set) DispatchAll() {
	for _, kind := range domain.SourceKinds {
		s.Dispatch(kind)
	}
}
