package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// State is the locally persisted client state
type State struct {
	Token     string   `json:"token"`
	Bookmarks []string `json:"bookmarkedBlogs"`
}

// Store loads and saves the client state
type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore persists State as JSON at a path
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

// Load reads the state file. A missing file is an empty state.
func (s *FileStore) Load() (State, error) {
	var state State
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to parse session file: %w", err)
	}
	return state, nil
}

// Save writes the state to a temp file and renames it over the old one,
// so a crash never leaves a half-written file behind.
func (s *FileStore) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// MemoryStore keeps state in memory
type MemoryStore struct {
	state State
	mu    sync.Mutex
}

// Load returns a copy of the stored state
func (s *MemoryStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Token: s.state.Token, Bookmarks: slices.Clone(s.state.Bookmarks)}, nil
}

// Save replaces the stored state
func (s *MemoryStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Token: state.Token, Bookmarks: slices.Clone(state.Bookmarks)}
	return nil
}

// Session holds the bearer token and bookmark set. Every mutation is
// persisted through the Store before it returns.
type Session struct {
	store     Store
	token     string
	bookmarks []string
	mu        sync.RWMutex
}

// NewSession loads the persisted state from store
func NewSession(store Store) (*Session, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{
		store:     store,
		token:     state.Token,
		bookmarks: dedupe(state.Bookmarks),
	}, nil
}

// Token returns the current bearer token, or "" when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores a freshly issued token
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(token, s.bookmarks)
}

// Logout clears the token. Bookmarks are kept; they belong to the device.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist("", s.bookmarks)
}

// ToggleBookmark adds id when absent and removes it when present.
// It reports whether id is bookmarked afterwards.
func (s *Session) ToggleBookmark(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.bookmarks)
	bookmarked := false
	if i := slices.Index(next, id); i >= 0 {
		next = slices.Delete(next, i, i+1)
	} else {
		next = append(next, id)
		bookmarked = true
	}

	if err := s.persist(s.token, next); err != nil {
		return !bookmarked, err
	}
	return bookmarked, nil
}

// IsBookmarked reports whether id is in the bookmark set
func (s *Session) IsBookmarked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.bookmarks, id)
}

// Bookmarks returns the bookmarked post ids in the order they were added
func (s *Session) Bookmarks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.bookmarks)
}

// persist saves first and only then updates memory, so a failed save
// leaves the session unchanged. Callers hold s.mu.
func (s *Session) persist(token string, bookmarks []string) error {
	if bookmarks == nil {
		bookmarks = []string{}
	}
	if err := s.store.Save(State{Token: token, Bookmarks: bookmarks}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.token = token
	s.bookmarks = bookmarks
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
