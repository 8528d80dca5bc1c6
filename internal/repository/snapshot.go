package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/jackc/pgx/v5"
)

// TxBeginner is implemented by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// snapshotTxOptions gives all four reads one MVCC snapshot.
var snapshotTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// Snapshotter reads every source table inside one read-only repeatable-read
// transaction, so a recomputation never mixes rows from different commits.
type Snapshotter struct {
	db  TxBeginner
	now func() time.Time
}

// NewSnapshotter returns a snapshotter over db. Weekly exercise minutes are
// taken in the week containing now().
func NewSnapshotter(db TxBeginner, now func() time.Time) *Snapshotter {
	if now == nil {
		now = time.Now
	}
	return &Snapshotter{db: db, now: now}
}

func (s *Snapshotter) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	quests, err := NewQuestRepository(tx, nil).Quests(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	books, err := NewBookRepository(tx, nil).Books(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	minutes, err := NewExerciseRepository(tx, nil, s.now).WeeklyMinutes(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	netWorth, err := NewAssetRepository(tx, nil).NetWorth(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}
	return domain.Snapshot{
		Quests:                quests,
		Books:                 books,
		WeeklyExerciseMinutes: minutes,
		NetWorthMinor:         netWorth,
	}, nil
}
