package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestRecord is a quest as seen by the stats engine. Only completed quests
// contribute experience.
type QuestRecord struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Experience int64     `json:"experience"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookStatus is the reading state of a book. The states are mutually exclusive.
type BookStatus string

const (
	BookWishlist BookStatus = "wishlist"
	BookReading  BookStatus = "reading"
	BookFinished BookStatus = "finished"
)

func (s BookStatus) IsValid() bool {
	switch s {
	case BookWishlist, BookReading, BookFinished:
		return true
	default:
		return false
	}
}

// BookRecord is a tracked book.
type BookRecord struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Status    BookStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// ExerciseRecord is a single exercise session.
type ExerciseRecord struct {
	ID              uuid.UUID `json:"id"`
	Kind            string    `json:"kind,omitempty"`
	DurationMinutes int64     `json:"duration_minutes"`
	Date            time.Time `json:"date"`
}

// AssetRecord is a financial account. BalanceMinor is signed and expressed
// in currency minor units (cents).
type AssetRecord struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BalanceMinor int64     `json:"balance_minor"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot is one reading of all four record sources, taken for a single
// recomputation.
type Snapshot struct {
	Quests                []QuestRecord
	Books                 []BookRecord
	WeeklyExerciseMinutes int64
	NetWorthMinor         int64
}
