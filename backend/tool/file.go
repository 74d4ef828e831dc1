package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

func (e *Executor) readFile(call toolcall.ToolCall, _ *history.Session, input ReadFileInput) Result {
	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}

	content, err := afero.ReadFile(e.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(call, fmt.Sprintf("file not found: %s", input.Path))
		}
		return errorResult(call, fmt.Sprintf("failed to read %s: %v", input.Path, err))
	}
	return successResult(call, string(content))
}

func (e *Executor) writeFile(call toolcall.ToolCall, session *history.Session, input WriteFileInput) Result {
	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}

	prev, readErr := afero.ReadFile(e.fs, path)
	existed := readErr == nil
	session.RecordWrite(path, string(prev), existed)

	if err := e.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errorResult(call, fmt.Sprintf("failed to create parent directory for %s: %v", input.Path, err))
	}
	if err := afero.WriteFile(e.fs, path, []byte(input.Content), 0644); err != nil {
		return errorResult(call, fmt.Sprintf("failed to write %s: %v", input.Path, err))
	}

	verb := "Created"
	if existed {
		verb = "Overwrote"
	}
	return successResult(call, fmt.Sprintf("%s %s (%d bytes)", verb, input.Path, len(input.Content)))
}

func (e *Executor) editFile(call toolcall.ToolCall, session *history.Session, input EditFileInput) Result {
	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}
	if input.Search == "" {
		return errorResult(call, "search text is required")
	}

	content, err := afero.ReadFile(e.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(call, fmt.Sprintf("file not found: %s", input.Path))
		}
		return errorResult(call, fmt.Sprintf("failed to read %s: %v", input.Path, err))
	}

	text := string(content)
	switch count := strings.Count(text, input.Search); {
	case count == 0:
		return errorResult(call, fmt.Sprintf("search text not found in %s; read the file and use the exact text", input.Path))
	case count > 1:
		return errorResult(call, fmt.Sprintf("search text matches %d locations in %s; include surrounding lines to make it unique", count, input.Path))
	}

	session.RecordEdit(path, text)

	updated := strings.Replace(text, input.Search, input.Replace, 1)
	if err := afero.WriteFile(e.fs, path, []byte(updated), 0644); err != nil {
		return errorResult(call, fmt.Sprintf("failed to write %s: %v", input.Path, err))
	}
	return successResult(call, fmt.Sprintf("Edited %s", input.Path))
}

func (e *Executor) deleteFile(call toolcall.ToolCall, session *history.Session, input DeleteFileInput) Result {
	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}

	info, err := e.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(call, fmt.Sprintf("file not found: %s", input.Path))
		}
		return errorResult(call, fmt.Sprintf("failed to stat %s: %v", input.Path, err))
	}
	if info.IsDir() {
		return errorResult(call, fmt.Sprintf("%s is a directory, use delete_directory", input.Path))
	}

	content, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return errorResult(call, fmt.Sprintf("failed to read %s before deletion: %v", input.Path, err))
	}
	session.RecordDelete(path, string(content), false)

	if err := e.fs.Remove(path); err != nil {
		return errorResult(call, fmt.Sprintf("failed to delete %s: %v", input.Path, err))
	}
	return successResult(call, fmt.Sprintf("Deleted %s", input.Path))
}

func (e *Executor) deleteDirectory(call toolcall.ToolCall, session *history.Session, input DeleteDirectoryInput) Result {
	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}
	if path == filepath.Clean(e.root) {
		return errorResult(call, "refusing to delete the project root")
	}

	info, err := e.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errorResult(call, fmt.Sprintf("directory not found: %s", input.Path))
		}
		return errorResult(call, fmt.Sprintf("failed to stat %s: %v", input.Path, err))
	}
	if !info.IsDir() {
		return errorResult(call, fmt.Sprintf("%s is a file, use delete_file", input.Path))
	}

	session.RecordDelete(path, "", true)

	if err := e.fs.RemoveAll(path); err != nil {
		return errorResult(call, fmt.Sprintf("failed to delete %s: %v", input.Path, err))
	}
	return successResult(call, fmt.Sprintf("Deleted directory %s (not undoable)", input.Path))
}

func (e *Executor) createDirectory(call toolcall.ToolCall, session *history.Session, input CreateDirectoryInput) Result {
	path, err := resolvePath(e.root, input.Path)
	if err != nil {
		return errorResult(call, err.Error())
	}

	existed := false
	if info, statErr := e.fs.Stat(path); statErr == nil {
		if !info.IsDir() {
			return errorResult(call, fmt.Sprintf("%s exists and is a file", input.Path))
		}
		existed = true
	}
	session.RecordMkdir(path, existed)

	if err := e.fs.MkdirAll(path, 0755); err != nil {
		return errorResult(call, fmt.Sprintf("failed to create %s: %v", input.Path, err))
	}
	if existed {
		return successResult(call, fmt.Sprintf("Directory %s already exists", input.Path))
	}
	return successResult(call, fmt.Sprintf("Created directory %s", input.Path))
}
