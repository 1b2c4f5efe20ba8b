/* file.go
 * Contains the file backed credential store used when the caller wants the session to survive restarts
 * ("remember me"). The whole file is rewritten on every change so a refresh replaces both tokens together
 * Authors: Zachary Bower
 */

package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type tokenFile struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// FileStore persists the token pair as a small JSON file
type FileStore struct {
	mu      sync.Mutex
	path    string
	access  string
	refresh string
}

// NewFileStore creates a store backed by the file at path. An existing file is
// loaded; a missing file is treated as an empty session, not an error
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credentials file path is required")
	}
	s := &FileStore{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		// A corrupt file means the session is unrecoverable anyway, start fresh
		return s, nil
	}
	s.access = tf.AccessToken
	s.refresh = tf.RefreshToken
	return s, nil
}

// Tokens returns the currently stored token pair
func (s *FileStore) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

// SetTokens replaces both tokens and rewrites the backing file
func (s *FileStore) SetTokens(access string, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(tokenFile{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	s.access = access
	s.refresh = refresh
	return nil
}

// Clear removes the stored pair and the backing file
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
