package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret-key", 24*time.Hour)
}

func TestGenerateAndValidatePlayerToken(t *testing.T) {
	mgr := newTestJWTManager()
	playerID := uuid.New()

	token, err := mgr.GenerateToken(RealmPlayer, playerID, "ada")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.ValidateTokenForRealms(token, RealmPlayer)
	require.NoError(t, err)
	assert.Equal(t, playerID.String(), claims.Subject)
	assert.Equal(t, RealmPlayer, claims.Realm)
	assert.Equal(t, "ada", claims.Name)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateToken_UnknownRealm(t *testing.T) {
	_, err := newTestJWTManager().GenerateToken("admin", uuid.New(), "")
	assert.ErrorContains(t, err, "unknown realm")
}

func TestRealmMismatchRejected(t *testing.T) {
	mgr := newTestJWTManager()

	token, err := mgr.GenerateToken(RealmViewer, uuid.New(), "")
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealms(token, RealmPlayer)
	assert.ErrorContains(t, err, "realm viewer not allowed")

	_, err = mgr.ValidateTokenForRealms(token, RealmPlayer, RealmViewer)
	assert.NoError(t, err)
}

func TestInvalidSecretRejected(t *testing.T) {
	mgr1 := NewJWTManager("secret-1", 24*time.Hour)
	mgr2 := NewJWTManager("secret-2", 24*time.Hour)

	token, err := mgr1.GenerateToken(RealmPlayer, uuid.New(), "")
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := NewJWTManager("secret", -time.Minute)

	token, err := mgr.GenerateToken(RealmPlayer, uuid.New(), "")
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

// --- Middleware ---

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Subject", SubjectFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	mgr := newTestJWTManager()
	subject := uuid.New()
	player, err := mgr.GenerateToken(RealmPlayer, subject, "")
	require.NoError(t, err)
	viewer, err := mgr.GenerateToken(RealmViewer, subject, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		realms []Realm
		want   int
	}{
		{"missing header", "", []Realm{RealmPlayer}, http.StatusUnauthorized},
		{"bad scheme", "Basic abc", []Realm{RealmPlayer}, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", []Realm{RealmPlayer}, http.StatusUnauthorized},
		{"player ok", "Bearer " + player, []Realm{RealmPlayer}, http.StatusOK},
		{"viewer on player route", "Bearer " + viewer, []Realm{RealmPlayer}, http.StatusUnauthorized},
		{"viewer on read route", "Bearer " + viewer, []Realm{RealmPlayer, RealmViewer}, http.StatusOK},
		{"lowercase scheme", "bearer " + player, []Realm{RealmPlayer}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(mgr, tt.realms...)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, subject.String(), rec.Header().Get("X-Subject"))
			}
		})
	}
}

func TestRequireRealm(t *testing.T) {
	mgr := newTestJWTManager()
	viewer, err := mgr.GenerateToken(RealmViewer, uuid.New(), "")
	require.NoError(t, err)

	h := Authenticate(mgr, RealmPlayer, RealmViewer)(RequireRealm(RealmPlayer)(okHandler()))
	req := httptest.NewRequest(http.MethodPost, "/quests", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	RequireRealm(RealmPlayer)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quests", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
