package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// QuestRepo is a pgx-backed source.QuestStore over quest_records.
type QuestRepo struct {
	*source.Broadcaster
	db DBTX
}

// NewQuestRepository returns a quest store notifying through b.
func NewQuestRepository(db DBTX, b *source.Broadcaster) *QuestRepo {
	if b == nil {
		b = source.NewBroadcaster()
	}
	return &QuestRepo{Broadcaster: b, db: db}
}

func (r *QuestRepo) Quests(ctx context.Context) ([]domain.QuestRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, experience, completed, created_at
		FROM quest_records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	return scanAll(rows, scanQuest)
}

func (r *QuestRepo) AddQuest(ctx context.Context, q domain.QuestRecord) (domain.QuestRecord, error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO quest_records (id, title, experience, completed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, experience, completed, created_at`,
		q.ID, q.Title, q.Experience, q.Completed, q.CreatedAt)
	out, err := scanQuest(row)
	if err != nil {
		return domain.QuestRecord{}, err
	}
	r.Notify()
	return out, nil
}

func (r *QuestRepo) SetQuestCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE quest_records SET completed = $2 WHERE id = $1`, id, completed)
	if err != nil {
		return fmt.Errorf("update quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("quest", id.String())
	}
	r.Notify()
	return nil
}

func (r *QuestRepo) DeleteQuest(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quest_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("quest", id.String())
	}
	r.Notify()
	return nil
}

func scanQuest(row pgx.Row) (domain.QuestRecord, error) {
	var q domain.QuestRecord
	if err := row.Scan(&q.ID, &q.Title, &q.Experience, &q.Completed, &q.CreatedAt); err != nil {
		return domain.QuestRecord{}, fmt.Errorf("scan quest: %w", err)
	}
	return q, nil
}
