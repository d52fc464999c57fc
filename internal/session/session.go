// Package session owns the persisted auth token. It is the single place
// the token is read, written and cleared; every authenticated call path
// goes through it.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// TokenFileName is the fixed key the token is persisted under inside the
// session directory.
const TokenFileName = "session_token"

// Store holds the session token in memory and mirrors it to a file so a
// restart keeps the user signed in. All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	path      string
	token     string
	listeners []func(token string)
}

// NewStore creates a session store persisting under dir. The previously
// saved token, if any, is loaded immediately.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	s := &Store{path: filepath.Join(dir, TokenFileName)}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		s.token = strings.TrimSpace(string(data))
	case os.IsNotExist(err):
		// First run, no session yet.
	default:
		return nil, fmt.Errorf("failed to read session token: %w", err)
	}

	return s, nil
}

// Token returns the stored token and whether one is present.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Set stores a new token and persists it. The file is written under the
// lock so the persisted token can never lag behind the in-memory one.
func (s *Store) Set(token string) error {
	s.mu.Lock()
	s.token = token
	err := os.WriteFile(s.path, []byte(token), 0o600)
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	for _, fn := range listeners {
		fn(token)
	}
	return nil
}

// Clear removes the token from memory and disk. Called on logout and
// whenever the server rejects the token.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to remove session token file")
	}
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn("")
	}
}

// Subscribe registers a callback invoked after every token change. The
// callback receives the new token, empty after Clear.
func (s *Store) Subscribe(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
