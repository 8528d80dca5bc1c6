package repository

import (
	"time"

	"github.com/attaboy/lifestats/internal/source"
)

// NewStores returns the pgx-backed stores, notifying through the
// broadcasters of set. When db can begin transactions the stores also carry a
// Snapshotter.
func NewStores(db DBTX, set *source.Set, now func() time.Time) source.Stores {
	if set == nil {
		set = source.NewSet()
	}
	stores := source.Stores{
		Quests:   NewQuestRepository(db, set.Quests),
		Books:    NewBookRepository(db, set.Books),
		Exercise: NewExerciseRepository(db, set.Exercise, now),
		Assets:   NewAssetRepository(db, set.Finance),
	}
	if tb, ok := db.(TxBeginner); ok {
		stores.Snapshot = NewSnapshotter(tb, now)
	}
	return stores
}
