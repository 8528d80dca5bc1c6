//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/attaboy/lifestats/internal/auth"
	"github.com/google/uuid"
)

// PlayerToken issues a token that may read and write records.
func (env *TestEnv) PlayerToken() string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmPlayer, uuid.New(), "player")
	if err != nil {
		env.t.Fatalf("PlayerToken: %v", err)
	}
	return token
}

// ViewerToken issues a read-only token.
func (env *TestEnv) ViewerToken() string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmViewer, uuid.New(), "viewer")
	if err != nil {
		env.t.Fatalf("ViewerToken: %v", err)
	}
	return token
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, token)
}

// AuthPOST performs an authenticated POST request with a JSON body.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token)
}

// AuthPATCH performs an authenticated PATCH request with a JSON body.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPatch, path, body, token)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodDelete, path, nil, token)
}

func (env *TestEnv) do(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// ExecSQL runs a statement directly against the test database, bypassing
// the repositories.
func (env *TestEnv) ExecSQL(sql string, args ...any) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := env.Pool.Exec(ctx, sql, args...); err != nil {
		env.t.Fatalf("ExecSQL: %v", err)
	}
}
