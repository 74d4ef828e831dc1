package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

// searchText shells out to grep for literal content search. grep is
// universally present where the agent runs and much faster than walking
// files in-process.
func (e *Executor) searchText(ctx context.Context, call toolcall.ToolCall, _ *history.Session, input SearchTextInput) Result {
	if input.Query == "" {
		return errorResult(call, "query is required")
	}

	dir := input.Path
	if dir == "" {
		dir = "."
	}
	path, err := resolvePath(e.root, dir)
	if err != nil {
		return errorResult(call, err.Error())
	}

	args := []string{"-rnF", "--binary-files=without-match"}
	for name := range skipDirs {
		args = append(args, "--exclude-dir="+name)
	}
	if input.FilePattern != "" {
		args = append(args, "--include="+input.FilePattern)
	}
	args = append(args, "--", input.Query, path)

	cmd := exec.CommandContext(ctx, "grep", args...)
	cmd.Dir = e.root

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		// grep exits 1 on no matches, which is a valid empty result
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return successResult(call, "No matches found")
		}
		return errorResult(call, fmt.Sprintf("search failed: %v\n%s", err, tail(output.String(), 1000)))
	}

	return successResult(call, relativizeMatches(tail(output.String(), 8000), e.root))
}

// searchFiles walks the tree matching paths against a doublestar glob.
func (e *Executor) searchFiles(call toolcall.ToolCall, _ *history.Session, input SearchFilesInput) Result {
	if input.Pattern == "" {
		return errorResult(call, "pattern is required")
	}
	if !doublestar.ValidatePattern(input.Pattern) {
		return errorResult(call, fmt.Sprintf("invalid glob pattern %q", input.Pattern))
	}

	var matches []string
	err := afero.Walk(e.fs, e.root, func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(e.root, path)
		if relErr != nil {
			return nil
		}
		if ok, _ := doublestar.Match(input.Pattern, filepath.ToSlash(rel)); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return errorResult(call, fmt.Sprintf("search failed: %v", err))
	}

	if len(matches) == 0 {
		return successResult(call, "No files match "+input.Pattern)
	}
	sort.Strings(matches)
	return successResult(call, strings.Join(matches, "\n"))
}

// relativizeMatches strips the absolute project root prefix from grep output
// so the model sees project-relative paths.
func relativizeMatches(output, root string) string {
	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
