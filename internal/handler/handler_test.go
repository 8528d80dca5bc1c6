package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/attaboy/lifestats/internal/auth"
	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/guard"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeRequest builds a POST /quests from addr, authenticated when token is set.
func writeRequest(addr, token, idemKey, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/quests", strings.NewReader(body))
	req.RemoteAddr = addr + ":40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- Responses ---

func TestRespondError_StatusFromAppError(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"not found":    {domain.ErrNotFound("book", "b1"), http.StatusNotFound, "NOT_FOUND"},
		"validation":   {domain.ErrValidation("title is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		"conflict":     {domain.ErrConflict("duplicate request"), http.StatusConflict, "CONFLICT"},
		"rate limited": {domain.ErrRateLimited("slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
		"wrapped":      {fmt.Errorf("delete asset: %w", domain.ErrNotFound("asset", "a1")), http.StatusNotFound, "NOT_FOUND"},
		"plain error":  {assert.AnError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, domain.ErrInternal("read snapshot", assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestDecodeJSON_RejectsUnknownFieldsAndLargeBodies(t *testing.T) {
	var dst struct {
		Title string `json:"title"`
	}
	r := httptest.NewRequest(http.MethodPost, "/quests", bytes.NewBufferString(`{"title":"Run","xp":40}`))
	assert.Error(t, DecodeJSON(r, &dst))

	big := `{"title":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/quests", strings.NewReader(big))
	assert.Error(t, DecodeJSON(r, &dst))

	r = httptest.NewRequest(http.MethodPost, "/quests", bytes.NewBufferString(`{"title":"Run"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "Run", dst.Title)
}

// --- Middleware ---

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:54321"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", " 1.2.3.4 , 5.6.7.8")
	assert.Equal(t, "1.2.3.4", ClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1"
	assert.Equal(t, "10.0.0.1", ClientIP(r))
}

func TestRequestID_PropagatesOrGenerates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("X-Request-ID", "req-7")
	w = serve(h, req)
	assert.Equal(t, "req-7", seen)
	assert.Equal(t, "req-7", w.Header().Get("X-Request-ID"))

	assert.Empty(t, GetRequestID(context.Background()))
}

func TestCORSWithOrigins_PreflightAllowsIdempotencyKey(t *testing.T) {
	called := false
	h := CORSWithOrigins("https://stats.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := serve(h, httptest.NewRequest(http.MethodOptions, "/quests", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, called)
	assert.Equal(t, "https://stats.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	h := Recovery(noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	var w *httptest.ResponseRecorder
	assert.NotPanics(t, func() { w = serve(h, httptest.NewRequest(http.MethodGet, "/profile", nil)) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

// --- Guards ---

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	h := RateLimit(guard.NewRateLimiter(2, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, serve(h, writeRequest("10.0.0.1", "", "", "")).Code)
	}
	w := serve(h, writeRequest("10.0.0.1", "", "", ""))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
}

func TestRateLimit_KeysBySubjectThenIP(t *testing.T) {
	jwtMgr := auth.NewJWTManager("handler-test-secret", time.Hour)
	alice, err := jwtMgr.GenerateToken(auth.RealmPlayer, uuid.New(), "alice")
	require.NoError(t, err)
	bob, err := jwtMgr.GenerateToken(auth.RealmPlayer, uuid.New(), "bob")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	limited := RateLimit(guard.NewRateLimiter(1, time.Minute))(ok)
	authed := auth.Authenticate(jwtMgr, auth.RealmPlayer)(limited)

	// A subject keeps its budget across addresses.
	assert.Equal(t, http.StatusNoContent, serve(authed, writeRequest("10.0.0.1", alice, "", "")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(authed, writeRequest("10.0.0.2", alice, "", "")).Code)

	// Another subject on the same address has its own budget.
	assert.Equal(t, http.StatusNoContent, serve(authed, writeRequest("10.0.0.1", bob, "", "")).Code)

	// Anonymous callers are keyed by address, untouched by the subjects above.
	assert.Equal(t, http.StatusNoContent, serve(limited, writeRequest("10.0.0.1", "", "", "")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(limited, writeRequest("10.0.0.1", "", "", "")).Code)
	assert.Equal(t, http.StatusNoContent, serve(limited, writeRequest("10.0.0.3", "", "", "")).Code)
}

func TestIdempotent_ReplayIsConflict(t *testing.T) {
	calls := 0
	h := Idempotent(guard.NewIdempotencyGuard(time.Hour))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	assert.Equal(t, http.StatusCreated, serve(h, writeRequest("10.0.0.1", "", "k1", "")).Code)
	w := serve(h, writeRequest("10.0.0.1", "", "k1", ""))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))

	// Requests without a key are never deduplicated.
	assert.Equal(t, http.StatusCreated, serve(h, writeRequest("10.0.0.1", "", "", "")).Code)
	assert.Equal(t, http.StatusCreated, serve(h, writeRequest("10.0.0.1", "", "", "")).Code)
	assert.Equal(t, 3, calls)
}

func TestIdempotent_FailedCreateReleasesKey(t *testing.T) {
	stores := source.NewMemoryStores(nil, nil)
	h := Idempotent(guard.NewIdempotencyGuard(time.Hour))(http.HandlerFunc(NewRecordHandler(stores).CreateQuest))

	w := serve(h, writeRequest("10.0.0.1", "", "create-1", `{"title":"   ","experience":40}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, writeRequest("10.0.0.1", "", "create-1", `{"title":"Run 5k","experience":40}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var q domain.QuestRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&q))
	assert.Equal(t, "Run 5k", q.Title)

	w = serve(h, writeRequest("10.0.0.1", "", "create-1", `{"title":"Run 5k","experience":40}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	quests, err := stores.Quests.Quests(context.Background())
	require.NoError(t, err)
	assert.Len(t, quests, 1)
}

func TestIdempotent_KeysScopedBySubject(t *testing.T) {
	jwtMgr := auth.NewJWTManager("handler-test-secret", time.Hour)
	alice, err := jwtMgr.GenerateToken(auth.RealmPlayer, uuid.New(), "alice")
	require.NoError(t, err)
	bob, err := jwtMgr.GenerateToken(auth.RealmPlayer, uuid.New(), "bob")
	require.NoError(t, err)

	stores := source.NewMemoryStores(nil, nil)
	create := Idempotent(guard.NewIdempotencyGuard(time.Hour))(http.HandlerFunc(NewRecordHandler(stores).CreateQuest))
	h := auth.Authenticate(jwtMgr, auth.RealmPlayer)(create)

	body := `{"title":"Stretch","experience":10}`
	assert.Equal(t, http.StatusCreated, serve(h, writeRequest("10.0.0.1", alice, "same", body)).Code)
	assert.Equal(t, http.StatusCreated, serve(h, writeRequest("10.0.0.1", bob, "same", body)).Code)
	assert.Equal(t, http.StatusConflict, serve(h, writeRequest("10.0.0.1", alice, "same", body)).Code)
}
