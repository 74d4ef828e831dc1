package tool

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrSandboxViolation marks a path that escapes the project root. Sandbox
// violations are rejected before any I/O and never retried.
type ErrSandboxViolation struct {
	Path string
	Root string
}

func (e *ErrSandboxViolation) Error() string {
	return fmt.Sprintf("path %q escapes the project root %q", e.Path, e.Root)
}

// resolvePath maps a tool-supplied path onto an absolute path under root.
// Relative paths resolve against root. Absolute paths are accepted only when
// they already lie under root, in which case they normalize like relative
// ones. Any canonical form escaping root is a sandbox violation.
func resolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path is required")
	}

	cleanRoot := filepath.Clean(root)

	var abs string
	if filepath.IsAbs(p) {
		abs = filepath.Clean(p)
	} else {
		abs = filepath.Clean(filepath.Join(cleanRoot, p))
	}

	rel, err := filepath.Rel(cleanRoot, abs)
	if err != nil {
		return "", &ErrSandboxViolation{Path: p, Root: cleanRoot}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &ErrSandboxViolation{Path: p, Root: cleanRoot}
	}

	return abs, nil
}
