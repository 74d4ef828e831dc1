package toolcall

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "canonical id", input: "execute_command", expected: "execute_command", ok: true},
		{name: "pascal case", input: "ExecuteCommand", expected: "execute_command", ok: true},
		{name: "kebab case", input: "execute-command", expected: "execute_command", ok: true},
		{name: "dot separated", input: "execute.command", expected: "execute_command", ok: true},
		{name: "surrounding whitespace", input: "  write_file  ", expected: "write_file", ok: true},
		{name: "bash alias", input: "bash", expected: "execute_command", ok: true},
		{name: "shell alias", input: "Shell", expected: "execute_command", ok: true},
		{name: "grep alias", input: "grep", expected: "search_text", ok: true},
		{name: "glob alias", input: "glob", expected: "search_files", ok: true},
		{name: "mkdir alias", input: "mkdir", expected: "create_directory", ok: true},
		{name: "unknown tool", input: "teleport", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			got, ok := NormalizeName(sc.input)
			if ok != sc.ok {
				t.Fatalf("NormalizeName(%q) ok = %v, want %v", sc.input, ok, sc.ok)
			}
			if ok && got != sc.expected {
				t.Fatalf("NormalizeName(%q) = %q, want %q", sc.input, got, sc.expected)
			}
		})
	}
}

func TestHasRequired(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name   string
		tool   string
		params map[string]any
		want   bool
	}{
		{
			name:   "write_file with path",
			tool:   "write_file",
			params: map[string]any{"path": "a.txt", "content": "x"},
			want:   true,
		},
		{
			name:   "write_file missing path",
			tool:   "write_file",
			params: map[string]any{"content": "x"},
			want:   false,
		},
		{
			name:   "empty string does not satisfy",
			tool:   "execute_command",
			params: map[string]any{"command": ""},
			want:   false,
		},
		{
			name:   "non-string required value counts as present",
			tool:   "execute_command",
			params: map[string]any{"command": 42},
			want:   true,
		},
		{
			name:   "list_files needs nothing",
			tool:   "list_files",
			params: map[string]any{},
			want:   true,
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			if got := hasRequired(sc.tool, sc.params); got != sc.want {
				t.Fatalf("hasRequired(%q, %v) = %v, want %v", sc.tool, sc.params, got, sc.want)
			}
		})
	}
}
