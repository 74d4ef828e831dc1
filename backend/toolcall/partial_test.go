package toolcall

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecoverPartial(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name     string
		tool     string
		raw      string
		expected map[string]any
	}{
		{
			name: "complete short fields survive a truncated payload",
			tool: "edit_file",
			raw:  `{"path": "pkg/server.go", "search": "old text", "replace": "new te`,
			expected: map[string]any{
				"path":   "pkg/server.go",
				"search": "old text",
			},
		},
		{
			name: "content cut mid string gets the truncation marker",
			tool: "write_file",
			raw:  `{"path": "a.txt", "content": "line one\nline tw`,
			expected: map[string]any{
				"path":    "a.txt",
				"content": "line one\nline tw\n" + TruncationMarker,
			},
		},
		{
			name: "content ending in a dangling escape",
			tool: "write_file",
			raw:  `{"path": "a.txt", "content": "ends with \`,
			expected: map[string]any{
				"path":    "a.txt",
				"content": "ends with \n" + TruncationMarker,
			},
		},
		{
			name: "complete content field recovered whole",
			tool: "write_file",
			raw:  `{"path": "a.txt", "content": "all here", "extra`,
			expected: map[string]any{
				"path":    "a.txt",
				"content": "all here",
			},
		},
		{
			name:     "nothing recoverable",
			tool:     "write_file",
			raw:      "garbage without any fields",
			expected: nil,
		},
		{
			name:     "empty payload",
			tool:     "write_file",
			raw:      "   ",
			expected: nil,
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			got := recoverPartial(sc.tool, sc.raw)
			if diff := cmp.Diff(sc.expected, got); diff != "" {
				t.Errorf("recoverPartial mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecoverPartialEscapedContent(t *testing.T) {
	t.Parallel()

	raw := `{"path": "a.txt", "content": "tab\there\nand \"quoted`
	got := recoverPartial("write_file", raw)
	if got == nil {
		t.Fatal("expected recovery, got nil")
	}
	content, _ := got["content"].(string)
	if !strings.Contains(content, "tab\there") {
		t.Errorf("escapes not decoded: %q", content)
	}
	if !strings.HasSuffix(content, TruncationMarker) {
		t.Errorf("missing truncation marker: %q", content)
	}
}
