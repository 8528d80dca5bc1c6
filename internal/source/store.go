// Package source provides the record stores that feed the stats engine:
// change broadcasting shared by every backend, and in-memory stores.
package source

import (
	"context"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/stats"
	"github.com/google/uuid"
)

// QuestStore is a quest source that also accepts writes.
type QuestStore interface {
	stats.QuestSource
	AddQuest(ctx context.Context, q domain.QuestRecord) (domain.QuestRecord, error)
	SetQuestCompleted(ctx context.Context, id uuid.UUID, completed bool) error
	DeleteQuest(ctx context.Context, id uuid.UUID) error
}

// BookStore is a book source that also accepts writes.
type BookStore interface {
	stats.BookSource
	AddBook(ctx context.Context, b domain.BookRecord) (domain.BookRecord, error)
	SetBookStatus(ctx context.Context, id uuid.UUID, status domain.BookStatus) error
	DeleteBook(ctx context.Context, id uuid.UUID) error
}

// ExerciseStore is an exercise source that also accepts writes.
type ExerciseStore interface {
	stats.ExerciseSource
	AddExercise(ctx context.Context, r domain.ExerciseRecord) (domain.ExerciseRecord, error)
	DeleteExercise(ctx context.Context, id uuid.UUID) error
}

// AssetStore is a finance source that also accepts writes.
type AssetStore interface {
	stats.FinanceSource
	AddAsset(ctx context.Context, a domain.AssetRecord) (domain.AssetRecord, error)
	SetAssetBalance(ctx context.Context, id uuid.UUID, balanceMinor int64) error
	DeleteAsset(ctx context.Context, id uuid.UUID) error
}

// Stores groups the four writable stores. Snapshot, when set, reads all four
// at a single point in time.
type Stores struct {
	Quests   QuestStore
	Books    BookStore
	Exercise ExerciseStore
	Assets   AssetStore
	Snapshot stats.Snapshotter
}

// Sources returns the read side of the stores for stats.Engine.Configure.
func (s Stores) Sources() stats.Sources {
	return stats.Sources{
		Quests:   s.Quests,
		Books:    s.Books,
		Exercise: s.Exercise,
		Finance:  s.Assets,
		Snapshot: s.Snapshot,
	}
}
