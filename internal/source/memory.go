package source

import (
	"context"
	"sync"
	"time"

	"github.com/attaboy/lifestats/internal/attribute"
	"github.com/attaboy/lifestats/internal/domain"
	"github.com/google/uuid"
)

// table is an insertion-ordered, mutex-protected record collection. Tables
// built by NewMemoryStores share one lock so a snapshot can read all of them
// at once.
type table[T any] struct {
	mu    *sync.RWMutex
	rows  map[uuid.UUID]T
	order []uuid.UUID
}

func newTable[T any](mu *sync.RWMutex) *table[T] {
	if mu == nil {
		mu = new(sync.RWMutex)
	}
	return &table[T]{mu: mu, rows: make(map[uuid.UUID]T)}
}

func (t *table[T]) insert(id uuid.UUID, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) update(entity string, id uuid.UUID, fn func(*T)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[id]
	if !ok {
		return domain.ErrNotFound(entity, id.String())
	}
	fn(&v)
	t.rows[id] = v
	return nil
}

func (t *table[T]) remove(entity string, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return domain.ErrNotFound(entity, id.String())
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *table[T]) list() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listLocked()
}

// listLocked requires the caller to hold t.mu.
func (t *table[T]) listLocked() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// MemoryQuests is an in-memory QuestStore.
type MemoryQuests struct {
	*Broadcaster
	rows *table[domain.QuestRecord]
}

// NewMemoryQuests creates an empty quest store. A nil broadcaster gets a fresh one.
func NewMemoryQuests(b *Broadcaster) *MemoryQuests {
	if b == nil {
		b = NewBroadcaster()
	}
	return &MemoryQuests{Broadcaster: b, rows: newTable[domain.QuestRecord](nil)}
}

func (s *MemoryQuests) Quests(_ context.Context) ([]domain.QuestRecord, error) {
	return s.rows.list(), nil
}

func (s *MemoryQuests) AddQuest(_ context.Context, q domain.QuestRecord) (domain.QuestRecord, error) {
	q.ID = newID(q.ID)
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	s.rows.insert(q.ID, q)
	s.Notify()
	return q, nil
}

func (s *MemoryQuests) SetQuestCompleted(_ context.Context, id uuid.UUID, completed bool) error {
	if err := s.rows.update("quest", id, func(q *domain.QuestRecord) { q.Completed = completed }); err != nil {
		return err
	}
	s.Notify()
	return nil
}

func (s *MemoryQuests) DeleteQuest(_ context.Context, id uuid.UUID) error {
	if err := s.rows.remove("quest", id); err != nil {
		return err
	}
	s.Notify()
	return nil
}

// MemoryBooks is an in-memory BookStore.
type MemoryBooks struct {
	*Broadcaster
	rows *table[domain.BookRecord]
}

// NewMemoryBooks creates an empty book store.
func NewMemoryBooks(b *Broadcaster) *MemoryBooks {
	if b == nil {
		b = NewBroadcaster()
	}
	return &MemoryBooks{Broadcaster: b, rows: newTable[domain.BookRecord](nil)}
}

func (s *MemoryBooks) Books(_ context.Context) ([]domain.BookRecord, error) {
	return s.rows.list(), nil
}

func (s *MemoryBooks) AddBook(_ context.Context, b domain.BookRecord) (domain.BookRecord, error) {
	if err := domain.ValidateBookStatus(b.Status); err != nil {
		return domain.BookRecord{}, domain.ErrValidation(err.Error())
	}
	b.ID = newID(b.ID)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.rows.insert(b.ID, b)
	s.Notify()
	return b, nil
}

func (s *MemoryBooks) SetBookStatus(_ context.Context, id uuid.UUID, status domain.BookStatus) error {
	if err := domain.ValidateBookStatus(status); err != nil {
		return domain.ErrValidation(err.Error())
	}
	if err := s.rows.update("book", id, func(b *domain.BookRecord) { b.Status = status }); err != nil {
		return err
	}
	s.Notify()
	return nil
}

func (s *MemoryBooks) DeleteBook(_ context.Context, id uuid.UUID) error {
	if err := s.rows.remove("book", id); err != nil {
		return err
	}
	s.Notify()
	return nil
}

// MemoryExercise is an in-memory ExerciseStore. WeeklyMinutes sums the
// sessions of the week containing the store clock's current time.
type MemoryExercise struct {
	*Broadcaster
	rows *table[domain.ExerciseRecord]
	now  func() time.Time
}

// NewMemoryExercise creates an empty exercise store. A nil broadcaster or
// clock gets a fresh broadcaster and time.Now.
func NewMemoryExercise(b *Broadcaster, now func() time.Time) *MemoryExercise {
	if b == nil {
		b = NewBroadcaster()
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryExercise{Broadcaster: b, rows: newTable[domain.ExerciseRecord](nil), now: now}
}

func (s *MemoryExercise) Records() []domain.ExerciseRecord {
	return s.rows.list()
}

func (s *MemoryExercise) WeeklyMinutes(_ context.Context) (int64, error) {
	return attribute.WeeklyMinutes(s.rows.list(), s.now()), nil
}

func (s *MemoryExercise) AddExercise(_ context.Context, r domain.ExerciseRecord) (domain.ExerciseRecord, error) {
	r.ID = newID(r.ID)
	if r.Date.IsZero() {
		r.Date = s.now()
	}
	s.rows.insert(r.ID, r)
	s.Notify()
	return r, nil
}

func (s *MemoryExercise) DeleteExercise(_ context.Context, id uuid.UUID) error {
	if err := s.rows.remove("exercise", id); err != nil {
		return err
	}
	s.Notify()
	return nil
}

// MemoryAssets is an in-memory AssetStore.
type MemoryAssets struct {
	*Broadcaster
	rows *table[domain.AssetRecord]
}

// NewMemoryAssets creates an empty asset store.
func NewMemoryAssets(b *Broadcaster) *MemoryAssets {
	if b == nil {
		b = NewBroadcaster()
	}
	return &MemoryAssets{Broadcaster: b, rows: newTable[domain.AssetRecord](nil)}
}

func (s *MemoryAssets) Assets() []domain.AssetRecord {
	return s.rows.list()
}

func (s *MemoryAssets) NetWorth(_ context.Context) (int64, error) {
	return attribute.NetWorth(s.rows.list()), nil
}

func (s *MemoryAssets) AddAsset(_ context.Context, a domain.AssetRecord) (domain.AssetRecord, error) {
	a.ID = newID(a.ID)
	a.UpdatedAt = time.Now().UTC()
	s.rows.insert(a.ID, a)
	s.Notify()
	return a, nil
}

func (s *MemoryAssets) SetAssetBalance(_ context.Context, id uuid.UUID, balanceMinor int64) error {
	err := s.rows.update("asset", id, func(a *domain.AssetRecord) {
		a.BalanceMinor = balanceMinor
		a.UpdatedAt = time.Now().UTC()
	})
	if err != nil {
		return err
	}
	s.Notify()
	return nil
}

func (s *MemoryAssets) DeleteAsset(_ context.Context, id uuid.UUID) error {
	if err := s.rows.remove("asset", id); err != nil {
		return err
	}
	s.Notify()
	return nil
}

// NewMemoryStores creates an in-memory store for every source, notifying
// through the broadcasters of set. The four stores share one lock, and the
// returned Snapshot reads them all under it.
func NewMemoryStores(set *Set, now func() time.Time) Stores {
	if set == nil {
		set = NewSet()
	}
	mu := new(sync.RWMutex)
	quests := NewMemoryQuests(set.Quests)
	quests.rows = newTable[domain.QuestRecord](mu)
	books := NewMemoryBooks(set.Books)
	books.rows = newTable[domain.BookRecord](mu)
	exercise := NewMemoryExercise(set.Exercise, now)
	exercise.rows = newTable[domain.ExerciseRecord](mu)
	assets := NewMemoryAssets(set.Finance)
	assets.rows = newTable[domain.AssetRecord](mu)

	return Stores{
		Quests:   quests,
		Books:    books,
		Exercise: exercise,
		Assets:   assets,
		Snapshot: &memorySnapshot{mu: mu, quests: quests, books: books, exercise: exercise, assets: assets},
	}
}

// memorySnapshot reads the four memory stores under their shared lock.
type memorySnapshot struct {
	mu       *sync.RWMutex
	quests   *MemoryQuests
	books    *MemoryBooks
	exercise *MemoryExercise
	assets   *MemoryAssets
}

func (s *memorySnapshot) Snapshot(_ context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Snapshot{
		Quests:                s.quests.rows.listLocked(),
		Books:                 s.books.rows.listLocked(),
		WeeklyExerciseMinutes: attribute.WeeklyMinutes(s.exercise.rows.listLocked(), s.exercise.now()),
		NetWorthMinor:         attribute.NetWorth(s.assets.rows.listLocked()),
	}, nil
}
