/* client_test.go
 * Contains unit tests for the HTTP client using httptest, covering the bearer header, the JSON
 * fallback envelope and the single refresh-and-retry contract
 * Authors: Zachary Bower
 */

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"arena-bot/api/creds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *creds.MemoryStore, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	store := creds.NewMemoryStore()
	return New(server.URL, store), store, server
}

func TestGet_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	c, store, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	require.NoError(t, store.SetTokens("acc-1", "ref-1"))

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), "/auth/me", &out))
	assert.Equal(t, "Bearer acc-1", gotAuth)
	assert.True(t, out.OK)
}

func TestGet_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, c.Get(context.Background(), "/practice/exercises", nil))
	assert.Empty(t, gotAuth)
}

func TestRequest_ErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"message field", 400, `{"message":"bad input"}`, "bad input"},
		{"error field", 422, `{"error":"validation failed"}`, "validation failed"},
		{"message beats error", 400, `{"message":"first","error":"second"}`, "first"},
		{"empty body", 500, ``, "Request failed with 500"},
		{"empty object", 503, `{}`, "Request failed with 503"},
		{"non-json body", 502, `<html>Bad Gateway</html>`, "Invalid response from server (502)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))

			err := c.Get(context.Background(), "/battle/active", nil)
			require.Error(t, err)
			apiErr, ok := err.(*APIError)
			require.True(t, ok, "expected *APIError, got %T", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.expected, apiErr.Message)
		})
	}
}

func TestRequest_MalformedSuccessBody(t *testing.T) {
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `this is not json`)
	}))

	var out map[string]interface{}
	err := c.Get(context.Background(), "/auth/me", &out)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "Invalid response from server (200)", apiErr.Message)
}

// TestRequest_RefreshAndRetry covers the core 401 contract: the first request 401s, the
// client refreshes once, persists the new pair, and the caller sees the retried response
func TestRequest_RefreshAndRetry(t *testing.T) {
	var refreshes, meCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-old", body["refreshToken"])
		fmt.Fprint(w, `{"accessToken":"acc-new","refreshToken":"ref-new"}`)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"token expired"}`)
			return
		}
		fmt.Fprint(w, `{"user":{"id":1,"username":"agent","rating":1500}}`)
	})

	c, store, _ := newTestClient(t, mux)
	require.NoError(t, store.SetTokens("acc-old", "ref-old"))

	var out struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, c.Get(context.Background(), "/auth/me", &out))
	assert.Equal(t, "agent", out.User.Username)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&meCalls))

	// The new pair replaced the old one in storage
	access, refresh := store.Tokens()
	assert.Equal(t, "acc-new", access)
	assert.Equal(t, "ref-new", refresh)
}

// TestRequest_NoSecondRefresh guards the infinite loop case: when the retried request
// itself returns 401, the client must not refresh again
func TestRequest_NoSecondRefresh(t *testing.T) {
	var refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		fmt.Fprint(w, `{"accessToken":"acc-new","refreshToken":"ref-new"}`)
	})
	mux.HandleFunc("/battle/active", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"still unauthorized"}`)
	})

	c, store, _ := newTestClient(t, mux)
	require.NoError(t, store.SetTokens("acc-old", "ref-old"))

	err := c.Get(context.Background(), "/battle/active", nil)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "still unauthorized", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestRequest_RefreshFailureFallsThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"refresh token revoked"}`)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"session expired"}`)
	})

	c, store, _ := newTestClient(t, mux)
	require.NoError(t, store.SetTokens("acc-old", "ref-old"))

	err := c.Get(context.Background(), "/auth/me", nil)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "session expired", apiErr.Message)
}

func TestRequest_NoRefreshWithoutStoredToken(t *testing.T) {
	var refreshCalled bool
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalled = true
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"no session"}`)
	})

	c, _, _ := newTestClient(t, mux)

	err := c.Get(context.Background(), "/auth/me", nil)
	require.Error(t, err)
	assert.False(t, refreshCalled)
}

func TestPost_SendsJSONBody(t *testing.T) {
	var got map[string]string
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, c.Post(context.Background(), "/auth/login", map[string]string{"username": "agent", "password": "hunter2"}, nil))
	assert.Equal(t, "agent", got["username"])
}
