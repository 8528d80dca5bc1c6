package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/lifestats/internal/attribute"
	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExerciseRepo is a pgx-backed source.ExerciseStore over exercise_records.
type ExerciseRepo struct {
	*source.Broadcaster
	db  DBTX
	now func() time.Time
}

// NewExerciseRepository returns an exercise store notifying through b. The
// week boundaries are taken in the location of now().
func NewExerciseRepository(db DBTX, b *source.Broadcaster, now func() time.Time) *ExerciseRepo {
	if b == nil {
		b = source.NewBroadcaster()
	}
	if now == nil {
		now = time.Now
	}
	return &ExerciseRepo{Broadcaster: b, db: db, now: now}
}

// WeeklyMinutes sums the sessions performed in the current week.
func (r *ExerciseRepo) WeeklyMinutes(ctx context.Context) (int64, error) {
	now := r.now()
	start := attribute.WeekStart(now)
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, duration_minutes, performed_at
		FROM exercise_records
		WHERE performed_at >= $1 AND performed_at < $2`,
		start, start.AddDate(0, 0, 7))
	if err != nil {
		return 0, fmt.Errorf("list exercise: %w", err)
	}
	records, err := scanAll(rows, scanExercise)
	if err != nil {
		return 0, err
	}
	return attribute.WeeklyMinutes(records, now), nil
}

func (r *ExerciseRepo) AddExercise(ctx context.Context, e domain.ExerciseRecord) (domain.ExerciseRecord, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Date.IsZero() {
		e.Date = r.now()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO exercise_records (id, kind, duration_minutes, performed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, kind, duration_minutes, performed_at`,
		e.ID, e.Kind, e.DurationMinutes, e.Date)
	out, err := scanExercise(row)
	if err != nil {
		return domain.ExerciseRecord{}, err
	}
	r.Notify()
	return out, nil
}

func (r *ExerciseRepo) DeleteExercise(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM exercise_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("exercise", id.String())
	}
	r.Notify()
	return nil
}

func scanExercise(row pgx.Row) (domain.ExerciseRecord, error) {
	var e domain.ExerciseRecord
	if err := row.Scan(&e.ID, &e.Kind, &e.DurationMinutes, &e.Date); err != nil {
		return domain.ExerciseRecord{}, fmt.Errorf("scan exercise: %w", err)
	}
	return e, nil
}
