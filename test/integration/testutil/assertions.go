//go:build integration

package testutil

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// WaitForProfile polls the engine until cond holds for its published profile
// or the timeout elapses, and returns the last profile seen.
func (env *TestEnv) WaitForProfile(timeout time.Duration, cond func(domain.PlayerProfile) bool) domain.PlayerProfile {
	env.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		p := env.Engine.Profile()
		if cond(p) {
			return p
		}
		if time.Now().After(deadline) {
			env.t.Fatalf("profile condition not met within %s; last profile %+v", timeout, p)
			return p
		}
		time.Sleep(10 * time.Millisecond)
	}
}
