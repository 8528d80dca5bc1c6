package projection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
)

// ProfileProjection is the cached, display-ready form of a published profile.
type ProfileProjection struct {
	Profile         domain.PlayerProfile `json:"profile"`
	LevelLabel      string               `json:"level_label"`
	ExperienceLabel string               `json:"experience_label"`
	Progress        float64              `json:"progress"`
	UpdatedAt       string               `json:"updated_at"`
}

const (
	profileKey = "projection:profile"
	profileTTL = 24 * time.Hour
)

// NewProfileProjection derives the display fields of p.
func NewProfileProjection(p domain.PlayerProfile) ProfileProjection {
	return ProfileProjection{
		Profile:         p,
		LevelLabel:      p.LevelLabel(),
		ExperienceLabel: p.ExperienceLabel(),
		Progress:        p.Progress(),
	}
}

// UpdateProfile caches p and returns the projection it replaced, or nil if
// none was cached.
func UpdateProfile(ctx context.Context, store Store, p domain.PlayerProfile) (*ProfileProjection, error) {
	prev, err := GetProfile(ctx, store)
	if err != nil && !errors.Is(err, ErrMiss) {
		return nil, err
	}
	proj := NewProfileProjection(p)
	updated := p.ComputedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	proj.UpdatedAt = updated.UTC().Format(time.RFC3339)
	if err := SetJSON(ctx, store, profileKey, proj, profileTTL); err != nil {
		return nil, err
	}
	return prev, nil
}

// GetProfile retrieves the cached profile projection. A missing or expired
// entry returns ErrMiss.
func GetProfile(ctx context.Context, store Store) (*ProfileProjection, error) {
	var p ProfileProjection
	if err := GetJSON(ctx, store, profileKey, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileRecorder caches every published profile and logs level changes.
// Record is meant to be passed to stats.Engine.Subscribe.
type ProfileRecorder struct {
	store  Store
	logger *slog.Logger
}

// NewProfileRecorder creates a recorder writing to store.
func NewProfileRecorder(store Store, logger *slog.Logger) *ProfileRecorder {
	return &ProfileRecorder{store: store, logger: logger}
}

// Record caches p.
func (r *ProfileRecorder) Record(p domain.PlayerProfile) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	prev, err := UpdateProfile(ctx, r.store, p)
	if err != nil {
		r.logger.Error("failed to cache profile", "error", err)
		return
	}
	if prev != nil && prev.Profile.Level != p.Level {
		r.logger.Info("level changed", "from", prev.Profile.Level, "to", p.Level)
	}
}
