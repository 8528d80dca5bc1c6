package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/projection"
)

// ProfileReader is the read side of stats.Engine.
type ProfileReader interface {
	Profile() domain.PlayerProfile
	Recomputations() int64
}

// ProfileHandler serves the derived player profile. It prefers the cached
// projection written by projection.ProfileRecorder and falls back to the
// engine when the cache is missing or behind.
type ProfileHandler struct {
	engine ProfileReader
	cache  projection.Store
	logger *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler. cache may be nil.
func NewProfileHandler(engine ProfileReader, cache projection.Store, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandler{engine: engine, cache: cache, logger: logger}
}

type profileResponse struct {
	projection.ProfileProjection
	Capped         bool  `json:"capped"`
	Recomputations int64 `json:"recomputations"`
}

// Get handles GET /profile. The X-Cache header reports HIT when the body came
// from the projection cache.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := h.engine.Profile()
	resp := profileResponse{Recomputations: h.engine.Recomputations()}

	if cached := h.cached(r, p); cached != nil {
		resp.ProfileProjection = *cached
		w.Header().Set("X-Cache", "HIT")
	} else {
		resp.ProfileProjection = projection.NewProfileProjection(p)
		if !p.ComputedAt.IsZero() {
			resp.UpdatedAt = p.ComputedAt.UTC().Format(time.RFC3339)
		}
		w.Header().Set("X-Cache", "MISS")
	}
	resp.Capped = resp.Profile.IsCapped()
	RespondJSON(w, http.StatusOK, resp)
}

// cached returns the cached projection if it is at least as new as current.
func (h *ProfileHandler) cached(r *http.Request, current domain.PlayerProfile) *projection.ProfileProjection {
	if h.cache == nil {
		return nil
	}
	proj, err := projection.GetProfile(r.Context(), h.cache)
	if err != nil {
		if !errors.Is(err, projection.ErrMiss) {
			h.logger.Warn("profile cache read failed", "error", err)
		}
		return nil
	}
	if proj.Profile.ComputedAt.Before(current.ComputedAt) {
		return nil
	}
	return proj
}
