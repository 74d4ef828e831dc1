package history

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newTestJournal(t *testing.T) (*Journal, *Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "/state/sessions")
	if err != nil {
		t.Fatal(err)
	}
	return NewJournal(fs, store), store, fs
}

func TestUndoWriteOfNewFile(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("create a file", "/project")

	session.RecordWrite("/project/a.txt", "", false)
	if err := afero.WriteFile(fs, "/project/a.txt", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	result := session.UndoLast()
	if !result.Success {
		t.Fatalf("undo failed: %s", result.Message)
	}
	if ok, _ := afero.Exists(fs, "/project/a.txt"); ok {
		t.Error("file still exists after undo")
	}
}

func TestUndoRestoresPreviousContent(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("edit", "/project")

	original := "line one\nline two\n"
	if err := afero.WriteFile(fs, "/project/f.txt", []byte(original), 0644); err != nil {
		t.Fatal(err)
	}

	session.RecordEdit("/project/f.txt", original)
	if err := afero.WriteFile(fs, "/project/f.txt", []byte("mangled"), 0644); err != nil {
		t.Fatal(err)
	}

	result := session.UndoLast()
	if !result.Success {
		t.Fatalf("undo failed: %s", result.Message)
	}
	restored, _ := afero.ReadFile(fs, "/project/f.txt")
	if string(restored) != original {
		t.Errorf("restored content = %q, want %q", restored, original)
	}
}

func TestUndoDeletedFile(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("delete", "/project")

	content := "precious bytes\n"
	session.RecordDelete("/project/sub/f.txt", content, false)

	result := session.UndoLast()
	if !result.Success {
		t.Fatalf("undo failed: %s", result.Message)
	}
	restored, err := afero.ReadFile(fs, "/project/sub/f.txt")
	if err != nil || string(restored) != content {
		t.Errorf("restored = %q, %v", restored, err)
	}
}

func TestUndoDirectoryDeleteFails(t *testing.T) {
	t.Parallel()

	journal, _, _ := newTestJournal(t)
	session := journal.Begin("delete dir", "/project")

	session.RecordDelete("/project/sub", "ignored", true)

	result := session.UndoLast()
	if result.Success {
		t.Fatal("directory delete must not be undoable")
	}
	if !strings.Contains(result.Message, "version control") {
		t.Errorf("message = %q", result.Message)
	}

	// The failed record stays pending, so a second attempt reports it again.
	again := session.UndoLast()
	if again.Success {
		t.Error("second attempt unexpectedly succeeded")
	}
}

func TestUndoCommandFails(t *testing.T) {
	t.Parallel()

	journal, _, _ := newTestJournal(t)
	session := journal.Begin("run", "/project")
	session.RecordCommand("rm", []string{"-r", "build"})

	result := session.UndoLast()
	if result.Success {
		t.Fatal("commands must not be undoable")
	}
	if !strings.Contains(result.Message, "rm") {
		t.Errorf("message does not name the command: %q", result.Message)
	}
}

func TestUndoMkdir(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("mkdir", "/project")

	if err := fs.MkdirAll("/project/fresh", 0755); err != nil {
		t.Fatal(err)
	}
	session.RecordMkdir("/project/fresh", false)
	session.RecordMkdir("/project/existing", true)

	ok, results := session.UndoAll()
	if !ok {
		t.Fatalf("undo all failed: %+v", results)
	}
	if exists, _ := afero.DirExists(fs, "/project/fresh"); exists {
		t.Error("fresh directory still exists")
	}
}

func TestUndoMkdirRefusesNonEmpty(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("mkdir", "/project")

	if err := fs.MkdirAll("/project/dir", 0755); err != nil {
		t.Fatal(err)
	}
	session.RecordMkdir("/project/dir", false)
	if err := afero.WriteFile(fs, "/project/dir/keep.txt", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	result := session.UndoLast()
	if result.Success {
		t.Fatal("non-empty directory removal must fail")
	}
	if ok, _ := afero.Exists(fs, "/project/dir/keep.txt"); !ok {
		t.Error("file inside the directory was lost")
	}
}

func TestUndoAllReverseOrderContinuesPastFailures(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("mixed", "/project")

	session.RecordWrite("/project/one.txt", "", false)
	afero.WriteFile(fs, "/project/one.txt", []byte("1"), 0644)
	session.RecordCommand("make", nil)
	session.RecordWrite("/project/two.txt", "", false)
	afero.WriteFile(fs, "/project/two.txt", []byte("2"), 0644)

	ok, results := session.UndoAll()
	if ok {
		t.Error("aggregate flag must be false when a command record is present")
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// reverse chronological: two.txt, command, one.txt
	if !results[0].Success || !strings.Contains(results[0].Message, "two.txt") {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Success {
		t.Errorf("command undo unexpectedly succeeded: %+v", results[1])
	}
	if !results[2].Success || !strings.Contains(results[2].Message, "one.txt") {
		t.Errorf("last result = %+v", results[2])
	}

	for _, p := range []string{"/project/one.txt", "/project/two.txt"} {
		if exists, _ := afero.Exists(fs, p); exists {
			t.Errorf("%s still exists", p)
		}
	}
}

func TestUndoneRecordsAreNeverUndoneTwice(t *testing.T) {
	t.Parallel()

	journal, _, fs := newTestJournal(t)
	session := journal.Begin("twice", "/project")

	session.RecordWrite("/project/a.txt", "", false)
	afero.WriteFile(fs, "/project/a.txt", []byte("x"), 0644)

	first := session.UndoLast()
	if !first.Success {
		t.Fatalf("first undo failed: %s", first.Message)
	}

	second := session.UndoLast()
	if second.Success {
		t.Fatal("second undo found something to do")
	}
	if !strings.Contains(second.Message, "nothing to undo") {
		t.Errorf("message = %q", second.Message)
	}
}

func TestEndPersistsOnlyNonEmptySessions(t *testing.T) {
	t.Parallel()

	journal, store, _ := newTestJournal(t)

	empty := journal.Begin("looked around, changed nothing", "/project")
	if err := empty.End(); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(empty.ID); err == nil {
		t.Error("empty session was persisted")
	}

	busy := journal.Begin("wrote a file", "/project")
	busy.RecordWrite("/project/a.txt", "", false)
	if err := busy.End(); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(busy.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Prompt != "wrote a file" || len(loaded.Actions) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.EndTime == nil {
		t.Error("end time not persisted")
	}

	// End is idempotent.
	if err := busy.End(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordAfterEndIsIgnored(t *testing.T) {
	t.Parallel()

	journal, _, _ := newTestJournal(t)
	session := journal.Begin("late", "/project")
	session.RecordWrite("/project/a.txt", "", false)
	if err := session.End(); err != nil {
		t.Fatal(err)
	}

	session.RecordWrite("/project/b.txt", "", false)
	if session.Len() != 1 {
		t.Errorf("len = %d, want 1", session.Len())
	}
}

func TestNilSessionIsSafe(t *testing.T) {
	t.Parallel()

	var session *Session
	session.RecordWrite("/x", "", false)
	session.RecordCommand("ls", nil)
	if err := session.End(); err != nil {
		t.Fatal(err)
	}
	if session.Len() != 0 || session.HasMutations() {
		t.Error("nil session misbehaved")
	}
}
