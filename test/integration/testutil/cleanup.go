//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every record table.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx,
		"TRUNCATE quest_records, book_records, exercise_records, asset_records")
	if err != nil {
		env.t.Fatalf("CleanAll: %v", err)
	}
}
