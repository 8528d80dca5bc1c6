package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/projection"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordRouter(stores source.Stores) http.Handler {
	h := NewRecordHandler(stores)
	r := chi.NewRouter()
	r.Get("/quests", h.ListQuests)
	r.Post("/quests", h.CreateQuest)
	r.Post("/quests/{id}/complete", h.CompleteQuest)
	r.Post("/quests/{id}/reopen", h.ReopenQuest)
	r.Delete("/quests/{id}", h.DeleteQuest)
	r.Get("/books", h.ListBooks)
	r.Post("/books", h.CreateBook)
	r.Patch("/books/{id}", h.UpdateBook)
	r.Delete("/books/{id}", h.DeleteBook)
	r.Post("/exercise", h.CreateExercise)
	r.Delete("/exercise/{id}", h.DeleteExercise)
	r.Post("/assets", h.CreateAsset)
	r.Patch("/assets/{id}", h.UpdateAsset)
	r.Delete("/assets/{id}", h.DeleteAsset)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["code"]
}

func TestRecordHandler_QuestLifecycle(t *testing.T) {
	stores := source.NewMemoryStores(nil, nil)
	h := newRecordRouter(stores)

	w := do(t, h, http.MethodPost, "/quests", `{"title":"  Run 5k ","experience":40}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var q domain.QuestRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&q))
	assert.Equal(t, "Run 5k", q.Title)
	assert.False(t, q.Completed)

	w = do(t, h, http.MethodPost, "/quests/"+q.ID.String()+"/complete", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
	quests, err := stores.Quests.Quests(context.Background())
	require.NoError(t, err)
	require.Len(t, quests, 1)
	assert.True(t, quests[0].Completed)

	w = do(t, h, http.MethodPost, "/quests/"+q.ID.String()+"/reopen", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/quests", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.QuestRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.False(t, listed[0].Completed)

	w = do(t, h, http.MethodDelete, "/quests/"+q.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
	w = do(t, h, http.MethodDelete, "/quests/"+q.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandler_EmptyListsAreArrays(t *testing.T) {
	h := newRecordRouter(source.NewMemoryStores(nil, nil))
	for _, path := range []string{"/quests", "/books"} {
		w := do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `[]`, w.Body.String(), path)
	}
}

func TestRecordHandler_Validation(t *testing.T) {
	h := newRecordRouter(source.NewMemoryStores(nil, nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"quest missing title", http.MethodPost, "/quests", `{"experience":10}`},
		{"quest negative xp", http.MethodPost, "/quests", `{"title":"x","experience":-1}`},
		{"quest bad json", http.MethodPost, "/quests", `{`},
		{"quest unknown field", http.MethodPost, "/quests", `{"title":"x","xp":1}`},
		{"quest bad id", http.MethodPost, "/quests/not-a-uuid/complete", ""},
		{"book bad status", http.MethodPost, "/books", `{"title":"Dune","status":"abandoned"}`},
		{"book patch bad status", http.MethodPatch, "/books/" + uuid.NewString(), `{"status":"gone"}`},
		{"exercise negative", http.MethodPost, "/exercise", `{"kind":"run","duration_minutes":-5}`},
		{"asset missing name", http.MethodPost, "/assets", `{"balance_minor":100}`},
		{"asset patch missing balance", http.MethodPatch, "/assets/" + uuid.NewString(), `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
		})
	}
}

func TestRecordHandler_BookDefaultsToWishlist(t *testing.T) {
	stores := source.NewMemoryStores(nil, nil)
	h := newRecordRouter(stores)

	w := do(t, h, http.MethodPost, "/books", `{"title":"Dune"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var b domain.BookRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
	assert.Equal(t, domain.BookWishlist, b.Status)

	w = do(t, h, http.MethodPatch, "/books/"+b.ID.String(), `{"status":"finished"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	books, err := stores.Books.Books(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BookFinished, books[0].Status)

	w = do(t, h, http.MethodDelete, "/books/"+b.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecordHandler_ExerciseAndAssets(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	stores := source.NewMemoryStores(nil, func() time.Time { return now })
	h := newRecordRouter(stores)
	ctx := context.Background()

	w := do(t, h, http.MethodPost, "/exercise", `{"kind":"run","duration_minutes":45}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var e domain.ExerciseRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	mins, err := stores.Exercise.WeeklyMinutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(45), mins)

	w = do(t, h, http.MethodPost, "/exercise", `{"kind":"swim","duration_minutes":30,"date":"2026-10-01T08:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	mins, err = stores.Exercise.WeeklyMinutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(45), mins)

	w = do(t, h, http.MethodDelete, "/exercise/"+e.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, "/assets", `{"name":"Credit card","balance_minor":-50000}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var a domain.AssetRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&a))

	w = do(t, h, http.MethodPatch, "/assets/"+a.ID.String(), `{"balance_minor":0}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	nw, err := stores.Assets.NetWorth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), nw)

	w = do(t, h, http.MethodPatch, "/assets/"+uuid.NewString(), `{"balance_minor":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, "/assets/"+a.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// --- Profile ---

type fakeProfiles struct {
	p domain.PlayerProfile
	n int64
}

func (f fakeProfiles) Profile() domain.PlayerProfile { return f.p }
func (f fakeProfiles) Recomputations() int64         { return f.n }

func TestProfileHandler_Get(t *testing.T) {
	computed := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	h := NewProfileHandler(fakeProfiles{
		p: domain.PlayerProfile{
			Level: 2, CurrentExperience: 20, ExperienceToNext: 120,
			Strength: 9, Intelligence: 5, Vitality: 75, Wealth: 2,
			ComputedAt: computed,
		},
		n: 3,
	}, nil, nil)

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Profile         domain.PlayerProfile `json:"profile"`
		LevelLabel      string               `json:"level_label"`
		ExperienceLabel string               `json:"experience_label"`
		Progress        float64              `json:"progress"`
		UpdatedAt       string               `json:"updated_at"`
		Capped          bool                 `json:"capped"`
		Recomputations  int64                `json:"recomputations"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, int64(2), body.Profile.Level)
	assert.Equal(t, int64(75), body.Profile.Vitality)
	assert.Equal(t, "Lv. 2", body.LevelLabel)
	assert.Equal(t, "20/120 XP", body.ExperienceLabel)
	assert.InDelta(t, 1.0/6.0, body.Progress, 1e-9)
	assert.Equal(t, "2026-10-19T10:00:00Z", body.UpdatedAt)
	assert.False(t, body.Capped)
	assert.Equal(t, int64(3), body.Recomputations)
}

func TestProfileHandler_Capped(t *testing.T) {
	h := NewProfileHandler(fakeProfiles{p: domain.PlayerProfile{Level: 100, CurrentExperience: 7, ExperienceToNext: domain.ExperienceCapped}}, nil, nil)
	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/profile", nil))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["capped"])
	assert.Equal(t, "7/MAX XP", body["experience_label"])
}

func TestProfileHandler_ServesCachedProjection(t *testing.T) {
	ctx := context.Background()
	computed := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	current := domain.PlayerProfile{Level: 3, ExperienceToNext: 144, ComputedAt: computed}
	cache := projection.NewInMemoryStore()
	h := NewProfileHandler(fakeProfiles{p: current, n: 4}, cache, nil)

	// Nothing recorded yet.
	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	_, err := projection.UpdateProfile(ctx, cache, current)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	var body profileResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, int64(3), body.Profile.Level)
	assert.Equal(t, "2026-10-19T10:00:00Z", body.UpdatedAt)
	assert.Equal(t, int64(4), body.Recomputations)
}

func TestProfileHandler_StaleCacheFallsBackToEngine(t *testing.T) {
	ctx := context.Background()
	computed := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	cache := projection.NewInMemoryStore()
	_, err := projection.UpdateProfile(ctx, cache, domain.PlayerProfile{Level: 1, ExperienceToNext: 100, ComputedAt: computed})
	require.NoError(t, err)

	current := domain.PlayerProfile{Level: 2, ExperienceToNext: 120, ComputedAt: computed.Add(time.Second)}
	h := NewProfileHandler(fakeProfiles{p: current}, cache, nil)

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	var body profileResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, int64(2), body.Profile.Level)
	assert.Equal(t, "2026-10-19T10:00:01Z", body.UpdatedAt)
}

// --- Health ---

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		w := httptest.NewRecorder()
		HealthHandler(nil, "memory")(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		HealthHandler(fakePinger{err: errors.New("refused")}, "postgres")(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "refused")
	})

	t.Run("database up", func(t *testing.T) {
		w := httptest.NewRecorder()
		HealthHandler(fakePinger{}, "postgres")(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
