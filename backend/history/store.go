package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Store persists completed sessions, one JSON document per session.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

func (st *Store) path(sessionID string) string {
	return filepath.Join(st.dir, sessionID+".json")
}

// Save writes the session document. Called once at session end; callers
// hold the session lock, so the exported fields are stable here.
func (st *Store) Save(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}
	if err := afero.WriteFile(st.fs, st.path(s.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", s.ID, err)
	}
	return nil
}

// Load reads one persisted session back. The returned session is inert: it
// carries the record list for inspection and undo but is already ended.
func (st *Store) Load(sessionID string) (*Session, error) {
	data, err := afero.ReadFile(st.fs, st.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	s.ended = true
	s.fs = st.fs
	s.store = st
	return &s, nil
}

// List returns persisted sessions, newest first.
func (st *Store) List() ([]*Session, error) {
	entries, err := afero.ReadDir(st.fs, st.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		s, err := st.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions, nil
}
