/* creds.go
 * Contains the Store interface for holding the arena token pair, and an in-memory implementation.
 * The http client is the only writer after login; a refresh always replaces both tokens together
 * Authors: Zachary Bower
 */

package creds

import "sync"

// Store holds the access/refresh token pair for one arena session.
// This interface allows for mocking in tests and for swapping the
// persistence strategy (memory vs file) based on "remember me".
type Store interface {
	Tokens() (access string, refresh string)
	SetTokens(access string, refresh string) error
	Clear() error
}

// MemoryStore keeps the token pair in memory only. This is the
// sessionStorage equivalent: the session dies with the process
type MemoryStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Tokens returns the currently stored token pair
func (m *MemoryStore) Tokens() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh
}

// SetTokens replaces both tokens at once
func (m *MemoryStore) SetTokens(access string, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
	return nil
}

// Clear drops the stored pair
func (m *MemoryStore) Clear() error {
	return m.SetTokens("", "")
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
