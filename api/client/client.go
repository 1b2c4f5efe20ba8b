/* client.go
 * Contains the HTTP client used for every request to the arena backend. It attaches the bearer token from the
 * credential store, decodes JSON bodies defensively, and on a 401 performs exactly one token refresh before
 * reissuing the original request. All non-2xx responses surface as *APIError
 * Authors: Zachary Bower
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arena-bot/api/creds"

	"golang.org/x/time/rate"
)

// APIError is a non-2xx response from the backend. Message carries the server's
// own message/error field when the body had one
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// errorBody is the envelope the backend uses for failures
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client issues authenticated JSON requests against a single base URL
type Client struct {
	BaseURL string
	Creds   creds.Store
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// New creates a client for the given backend base URL (e.g. "https://arena.example.com/api").
// The rate limiter keeps the lifecycle pollers from hammering the backend; 10 req/s with
// bursts of 20 is well above what the polling schedule ever needs
func New(baseURL string, store creds.Store) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Creds:   store,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// Get issues a GET request and decodes the response into out
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.request(ctx, http.MethodGet, path, nil, out, false)
}

// Post issues a POST request with a JSON body and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.request(ctx, http.MethodPost, path, body, out, false)
}

// Put issues a PUT request with a JSON body and decodes the response into out
func (c *Client) Put(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.request(ctx, http.MethodPut, path, body, out, false)
}

// Delete issues a DELETE request and decodes the response into out
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.request(ctx, http.MethodDelete, path, nil, out, false)
}

// request performs one HTTP round trip. isRetry marks the single reissue after a token
// refresh; a retried request that 401s again is surfaced as-is so refreshes cannot loop
func (c *Client) request(ctx context.Context, method string, path string, body interface{}, out interface{}, isRetry bool) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if access, _ := c.Creds.Tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized && !isRetry {
		if refreshErr := c.refreshTokens(ctx); refreshErr == nil {
			return c.request(ctx, method, path, body, out, true)
		}
		// refresh failed, fall through to normal error surfacing
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Message: failureMessage(raw, res.StatusCode)}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			// Malformed server output must not look like a transport crash
			return &APIError{Status: res.StatusCode, Message: fmt.Sprintf("Invalid response from server (%d)", res.StatusCode)}
		}
	}
	return nil
}

// refreshTokens exchanges the stored refresh token for a new pair and persists it.
// This deliberately bypasses request() so a refresh can never trigger another refresh
func (c *Client) refreshTokens(ctx context.Context) error {
	_, refresh := c.Creds.Tokens()
	if refresh == "" {
		return errors.New("no refresh token stored")
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed with %d", res.StatusCode)
	}

	var pair tokenPair
	if err := json.NewDecoder(res.Body).Decode(&pair); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return errors.New("refresh response missing tokens")
	}
	return c.Creds.SetTokens(pair.AccessToken, pair.RefreshToken)
}

// failureMessage derives the user facing message for a non-2xx response.
// An empty body falls back to the status; a body that is not JSON is reported as an
// invalid server response rather than raising a decode error
func failureMessage(raw []byte, status int) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Sprintf("Request failed with %d", status)
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Sprintf("Invalid response from server (%d)", status)
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Err != "" {
		return body.Err
	}
	return fmt.Sprintf("Request failed with %d", status)
}
