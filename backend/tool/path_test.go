package tool

import (
	"errors"
	"testing"
)

func TestResolvePath(t *testing.T) {
	t.Parallel()

	root := "/work/project"

	scenarios := []struct {
		name      string
		path      string
		expected  string
		violation bool
		wantErr   bool
	}{
		{name: "relative path", path: "src/main.go", expected: "/work/project/src/main.go"},
		{name: "dot path", path: ".", expected: "/work/project"},
		{name: "absolute path inside root", path: "/work/project/a.txt", expected: "/work/project/a.txt"},
		{name: "relative escape", path: "../other/secrets.txt", violation: true, wantErr: true},
		{name: "nested relative escape", path: "src/../../other", violation: true, wantErr: true},
		{name: "absolute path outside root", path: "/etc/passwd", violation: true, wantErr: true},
		{name: "sibling prefix does not count as inside", path: "/work/project-backup/a", violation: true, wantErr: true},
		{name: "escape that returns inside is fine", path: "../project/src/main.go", expected: "/work/project/src/main.go"},
		{name: "empty path", path: "", wantErr: true},
		{name: "whitespace path", path: "   ", wantErr: true},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			got, err := resolvePath(root, sc.path)
			if sc.wantErr {
				if err == nil {
					t.Fatalf("resolvePath(%q) = %q, want error", sc.path, got)
				}
				var violation *ErrSandboxViolation
				if errors.As(err, &violation) != sc.violation {
					t.Errorf("violation = %v, want %v (err: %v)", !sc.violation, sc.violation, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolvePath(%q): %v", sc.path, err)
			}
			if got != sc.expected {
				t.Errorf("resolvePath(%q) = %q, want %q", sc.path, got, sc.expected)
			}
		})
	}
}
