package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

type ActionType string

const (
	ActionWrite   ActionType = "write"
	ActionEdit    ActionType = "edit"
	ActionDelete  ActionType = "delete"
	ActionMkdir   ActionType = "mkdir"
	ActionCommand ActionType = "command"
)

// ActionRecord captures exactly enough pre-state to reverse one mutating
// action. Command records are audit-only and never reversible.
type ActionRecord struct {
	ID              string     `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	Type            ActionType `json:"type"`
	Path            string     `json:"path,omitempty"`
	PreviousContent string     `json:"previousContent,omitempty"`
	PreviousExisted bool       `json:"previousExisted,omitempty"`
	WasDirectory    bool       `json:"wasDirectory,omitempty"`
	DeletedContent  string     `json:"deletedContent,omitempty"`
	Command         string     `json:"command,omitempty"`
	Args            []string   `json:"args,omitempty"`
	Undone          bool       `json:"undone"`
}

// Session is the bounded, reversible record of all mutating actions taken
// during one agent run. The orchestrator owns exactly one and passes it into
// every record and undo call; the journal itself holds no current-session
// state.
type Session struct {
	ID          string         `json:"id"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Prompt      string         `json:"prompt"`
	Actions     []ActionRecord `json:"actions"`
	ProjectRoot string         `json:"projectRoot"`

	mu    sync.Mutex
	fs    afero.Fs
	store *Store
	ended bool
}

// Journal creates sessions and persists the non-empty ones.
type Journal struct {
	fs    afero.Fs
	store *Store
}

func NewJournal(fs afero.Fs, store *Store) *Journal {
	return &Journal{fs: fs, store: store}
}

// Begin opens a fresh session for one agent run.
func (j *Journal) Begin(prompt, projectRoot string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		StartTime:   time.Now(),
		Prompt:      prompt,
		ProjectRoot: projectRoot,
		fs:          j.fs,
		store:       j.store,
	}
}

func (s *Session) record(r ActionRecord) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		slog.Warn("record after session end ignored", "type", r.Type, "path", r.Path)
		return
	}
	r.ID = uuid.NewString()
	r.Timestamp = time.Now()
	s.Actions = append(s.Actions, r)
}

// RecordWrite snapshots a file about to be written. prevExisted is false for
// a brand-new file, in which case prevContent is ignored.
func (s *Session) RecordWrite(path, prevContent string, prevExisted bool) {
	s.record(ActionRecord{
		Type:            ActionWrite,
		Path:            path,
		PreviousContent: prevContent,
		PreviousExisted: prevExisted,
	})
}

// RecordEdit snapshots a file about to be edited in place.
func (s *Session) RecordEdit(path, prevContent string) {
	s.record(ActionRecord{
		Type:            ActionEdit,
		Path:            path,
		PreviousContent: prevContent,
		PreviousExisted: true,
	})
}

// RecordDelete snapshots a deletion. Directory trees are not restorable
// byte-for-byte, so wasDirectory records mark themselves non-reversible and
// deletedContent stays empty for them.
func (s *Session) RecordDelete(path, deletedContent string, wasDirectory bool) {
	if wasDirectory {
		deletedContent = ""
	}
	s.record(ActionRecord{
		Type:           ActionDelete,
		Path:           path,
		DeletedContent: deletedContent,
		WasDirectory:   wasDirectory,
	})
}

// RecordMkdir snapshots a directory creation. preExisted suppresses undo.
func (s *Session) RecordMkdir(path string, preExisted bool) {
	s.record(ActionRecord{
		Type:            ActionMkdir,
		Path:            path,
		PreviousExisted: preExisted,
	})
}

// RecordCommand logs a shell command for audit. Commands are never undoable.
func (s *Session) RecordCommand(command string, args []string) {
	s.record(ActionRecord{
		Type:    ActionCommand,
		Command: command,
		Args:    args,
	})
}

// End seals the session and persists it iff it recorded at least one action.
// Ending an empty session is a deliberate no-op so durable storage doesn't
// fill with empty documents. End is safe to call more than once.
func (s *Session) End() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	s.ended = true

	now := time.Now()
	s.EndTime = &now

	if len(s.Actions) == 0 || s.store == nil {
		return nil
	}
	return s.store.Save(s)
}

func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Actions)
}

// HasMutations reports whether any filesystem-mutating action was recorded.
func (s *Session) HasMutations() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Actions {
		if a.Type != ActionCommand {
			return true
		}
	}
	return false
}
