package stats

import (
	"context"

	"github.com/attaboy/lifestats/internal/domain"
)

// Notifier delivers a signal after every committed mutation of a record
// collection. The returned cancel func removes the listener.
type Notifier interface {
	Subscribe(fn func()) (cancel func())
}

// QuestSource exposes the quest collection.
type QuestSource interface {
	Notifier
	Quests(ctx context.Context) ([]domain.QuestRecord, error)
}

// BookSource exposes the book collection.
type BookSource interface {
	Notifier
	Books(ctx context.Context) ([]domain.BookRecord, error)
}

// ExerciseSource exposes the exercise total for the current week.
type ExerciseSource interface {
	Notifier
	WeeklyMinutes(ctx context.Context) (int64, error)
}

// FinanceSource exposes the net worth across all assets, in minor units.
type FinanceSource interface {
	Notifier
	NetWorth(ctx context.Context) (int64, error)
}

// Snapshotter reads all four collections at a single point in time, so no
// write can land between two of the reads.
type Snapshotter interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// Sources binds the engine to its four record sources. When Snapshot is set
// every recomputation reads through it; otherwise the four sources are read
// one after another, which is only consistent for sources that never change
// during a read.
type Sources struct {
	Quests   QuestSource
	Books    BookSource
	Exercise ExerciseSource
	Finance  FinanceSource
	Snapshot Snapshotter
}

func (s Sources) validate() error {
	switch {
	case s.Quests == nil:
		return domain.ErrValidation("quest source is required")
	case s.Books == nil:
		return domain.ErrValidation("book source is required")
	case s.Exercise == nil:
		return domain.ErrValidation("exercise source is required")
	case s.Finance == nil:
		return domain.ErrValidation("finance source is required")
	}
	return nil
}

func (s Sources) notifiers() []Notifier {
	return []Notifier{s.Quests, s.Books, s.Exercise, s.Finance}
}

// snapshot reads all four sources. It runs only on the engine's owner
// goroutine.
func (s Sources) snapshot(ctx context.Context) (domain.Snapshot, error) {
	if s.Snapshot != nil {
		snap, err := s.Snapshot.Snapshot(ctx)
		if err != nil {
			return domain.Snapshot{}, domain.ErrInternal("read snapshot", err)
		}
		return snap, nil
	}

	var (
		snap domain.Snapshot
		err  error
	)
	if snap.Quests, err = s.Quests.Quests(ctx); err != nil {
		return domain.Snapshot{}, domain.ErrInternal("read quests", err)
	}
	if snap.Books, err = s.Books.Books(ctx); err != nil {
		return domain.Snapshot{}, domain.ErrInternal("read books", err)
	}
	if snap.WeeklyExerciseMinutes, err = s.Exercise.WeeklyMinutes(ctx); err != nil {
		return domain.Snapshot{}, domain.ErrInternal("read exercise", err)
	}
	if snap.NetWorthMinor, err = s.Finance.NetWorth(ctx); err != nil {
		return domain.Snapshot{}, domain.ErrInternal("read finance", err)
	}
	return snap, nil
}
