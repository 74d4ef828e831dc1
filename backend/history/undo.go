package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// UndoResult reports the outcome of reversing a single record.
type UndoResult struct {
	Success bool
	Message string
}

// UndoLast reverses the most recent record that has not been undone yet.
func (s *Session) UndoLast() UndoResult {
	if s == nil {
		return UndoResult{Success: false, Message: "no active session"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.Actions) - 1; i >= 0; i-- {
		if s.Actions[i].Undone {
			continue
		}
		return s.undoRecord(&s.Actions[i])
	}
	return UndoResult{Success: false, Message: "nothing to undo"}
}

// UndoAll reverses every remaining record in reverse chronological order,
// continuing past individual failures. The aggregate flag is true only when
// every record undid cleanly.
func (s *Session) UndoAll() (bool, []UndoResult) {
	if s == nil {
		return false, []UndoResult{{Success: false, Message: "no active session"}}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	allClean := true
	var results []UndoResult
	for i := len(s.Actions) - 1; i >= 0; i-- {
		if s.Actions[i].Undone {
			continue
		}
		result := s.undoRecord(&s.Actions[i])
		if !result.Success {
			allClean = false
		}
		results = append(results, result)
	}
	if len(results) == 0 {
		return true, nil
	}
	return allClean, results
}

// undoRecord applies the inverse of one action. Caller holds s.mu. A record
// is marked undone only when its reversal succeeded, so a failed undo can be
// retried; a record already undone is never touched again.
func (s *Session) undoRecord(r *ActionRecord) UndoResult {
	var result UndoResult
	switch r.Type {
	case ActionWrite, ActionEdit:
		result = s.undoWrite(r)
	case ActionDelete:
		result = s.undoDelete(r)
	case ActionMkdir:
		result = s.undoMkdir(r)
	case ActionCommand:
		result = UndoResult{
			Success: false,
			Message: fmt.Sprintf("cannot undo command %q: command effects are not tracked", r.Command),
		}
	default:
		result = UndoResult{Success: false, Message: fmt.Sprintf("unknown action type %q", r.Type)}
	}

	if result.Success {
		r.Undone = true
	}
	return result
}

func (s *Session) undoWrite(r *ActionRecord) UndoResult {
	if !r.PreviousExisted {
		if err := s.fs.Remove(r.Path); err != nil && !os.IsNotExist(err) {
			return UndoResult{Success: false, Message: fmt.Sprintf("failed to remove %s: %v", r.Path, err)}
		}
		return UndoResult{Success: true, Message: fmt.Sprintf("removed %s", r.Path)}
	}

	if err := afero.WriteFile(s.fs, r.Path, []byte(r.PreviousContent), 0644); err != nil {
		return UndoResult{Success: false, Message: fmt.Sprintf("failed to restore %s: %v", r.Path, err)}
	}
	return UndoResult{Success: true, Message: fmt.Sprintf("restored %s", r.Path)}
}

func (s *Session) undoDelete(r *ActionRecord) UndoResult {
	if r.WasDirectory {
		return UndoResult{
			Success: false,
			Message: fmt.Sprintf("cannot restore deleted directory %s: directory trees are not snapshotted, use version control", r.Path),
		}
	}

	if err := s.fs.MkdirAll(filepath.Dir(r.Path), 0755); err != nil {
		return UndoResult{Success: false, Message: fmt.Sprintf("failed to recreate parent of %s: %v", r.Path, err)}
	}
	if err := afero.WriteFile(s.fs, r.Path, []byte(r.DeletedContent), 0644); err != nil {
		return UndoResult{Success: false, Message: fmt.Sprintf("failed to recreate %s: %v", r.Path, err)}
	}
	return UndoResult{Success: true, Message: fmt.Sprintf("recreated %s", r.Path)}
}

func (s *Session) undoMkdir(r *ActionRecord) UndoResult {
	if r.PreviousExisted {
		return UndoResult{Success: true, Message: fmt.Sprintf("%s existed before, left in place", r.Path)}
	}

	entries, err := afero.ReadDir(s.fs, r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return UndoResult{Success: true, Message: fmt.Sprintf("%s already gone", r.Path)}
		}
		return UndoResult{Success: false, Message: fmt.Sprintf("failed to inspect %s: %v", r.Path, err)}
	}
	if len(entries) > 0 {
		return UndoResult{
			Success: false,
			Message: fmt.Sprintf("refusing to remove %s: directory is no longer empty", r.Path),
		}
	}

	if err := s.fs.Remove(r.Path); err != nil {
		return UndoResult{Success: false, Message: fmt.Sprintf("failed to remove %s: %v", r.Path, err)}
	}
	return UndoResult{Success: true, Message: fmt.Sprintf("removed %s", r.Path)}
}
