package tool

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/toolcall"
)

// skipDirs are never listed regardless of gitignore state.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".conjure":     true,
}

func (e *Executor) listFiles(call toolcall.ToolCall, _ *history.Session, input ListFilesInput) Result {
	dir := input.Path
	if dir == "" {
		dir = "."
	}
	path, err := resolvePath(e.root, dir)
	if err != nil {
		return errorResult(call, err.Error())
	}

	info, err := e.fs.Stat(path)
	if err != nil {
		return errorResult(call, fmt.Sprintf("directory not found: %s", dir))
	}
	if !info.IsDir() {
		return errorResult(call, fmt.Sprintf("%s is not a directory", dir))
	}

	matcher := e.gitignoreMatcher()

	var lines []string
	if input.Recursive {
		err = afero.Walk(e.fs, path, func(walkPath string, entry fs.FileInfo, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if walkPath == path {
				return nil
			}
			rel, relErr := filepath.Rel(e.root, walkPath)
			if relErr != nil {
				return nil
			}
			if entry.IsDir() {
				if skipDirs[entry.Name()] || (matcher != nil && matcher.MatchesPath(rel+"/")) {
					return filepath.SkipDir
				}
				lines = append(lines, rel+"/")
				return nil
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				return nil
			}
			lines = append(lines, rel)
			return nil
		})
		if err != nil {
			return errorResult(call, fmt.Sprintf("failed to walk %s: %v", dir, err))
		}
	} else {
		entries, readErr := afero.ReadDir(e.fs, path)
		if readErr != nil {
			return errorResult(call, fmt.Sprintf("failed to list %s: %v", dir, readErr))
		}
		for _, entry := range entries {
			rel, relErr := filepath.Rel(e.root, filepath.Join(path, entry.Name()))
			if relErr != nil {
				continue
			}
			if entry.IsDir() {
				if skipDirs[entry.Name()] || (matcher != nil && matcher.MatchesPath(rel+"/")) {
					continue
				}
				lines = append(lines, rel+"/")
				continue
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				continue
			}
			lines = append(lines, rel)
		}
	}

	sort.Strings(lines)
	if len(lines) == 0 {
		return successResult(call, "(empty)")
	}
	return successResult(call, strings.Join(lines, "\n"))
}

// gitignoreMatcher compiles the project's .gitignore when present. A broken
// or missing file just disables gitignore filtering.
func (e *Executor) gitignoreMatcher() *ignore.GitIgnore {
	data, err := afero.ReadFile(e.fs, filepath.Join(e.root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)
}
