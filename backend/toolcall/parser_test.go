package toolcall

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseText(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name     string
		text     string
		expected []ToolCall
	}{
		{
			name: "delimited block",
			text: "I'll read the file first.\n<<<TOOL_CALL>>>\n" +
				`{"tool": "read_file", "parameters": {"path": "main.go"}}` +
				"\n<<<END_TOOL_CALL>>>",
			expected: []ToolCall{
				{Tool: "read_file", Parameters: map[string]any{"path": "main.go"}},
			},
		},
		{
			name: "multiple delimited blocks",
			text: "<<<TOOL_CALL>>>\n" +
				`{"tool": "read_file", "parameters": {"path": "a.go"}}` +
				"\n<<<END_TOOL_CALL>>>\nand then\n<<<TOOL_CALL>>>\n" +
				`{"tool": "read_file", "parameters": {"path": "b.go"}}` +
				"\n<<<END_TOOL_CALL>>>",
			expected: []ToolCall{
				{Tool: "read_file", Parameters: map[string]any{"path": "a.go"}},
				{Tool: "read_file", Parameters: map[string]any{"path": "b.go"}},
			},
		},
		{
			name: "bare name block",
			text: "<<<TOOL_CALL>>>\nexecute_command\n" +
				`{"command": "go test ./..."}` +
				"\n<<<END_TOOL_CALL>>>",
			expected: []ToolCall{
				{Tool: "execute_command", Parameters: map[string]any{"command": "go test ./..."}},
			},
		},
		{
			name: "fenced json block",
			text: "Here is the call:\n```json\n" +
				`{"tool": "list_files", "parameters": {"path": ".", "recursive": true}}` +
				"\n```",
			expected: []ToolCall{
				{Tool: "list_files", Parameters: map[string]any{"path": ".", "recursive": true}},
			},
		},
		{
			name: "tag format",
			text: "Tool: search_text\nParameters: {\"query\": \"TODO\"}\n",
			expected: []ToolCall{
				{Tool: "search_text", Parameters: map[string]any{"query": "TODO"}},
			},
		},
		{
			name: "inline json with tool and parameters keys",
			text: `Sure, running {"tool": "execute_command", "parameters": {"command": "ls"}} now.`,
			expected: []ToolCall{
				{Tool: "execute_command", Parameters: map[string]any{"command": "ls"}},
			},
		},
		{
			name: "name and arguments spelling accepted",
			text: "<<<TOOL_CALL>>>\n" +
				`{"name": "WriteFile", "arguments": {"path": "x.txt", "content": "hi"}}` +
				"\n<<<END_TOOL_CALL>>>",
			expected: []ToolCall{
				{Tool: "write_file", Parameters: map[string]any{"path": "x.txt", "content": "hi"}},
			},
		},
		{
			name: "duplicate calls collapse",
			text: "<<<TOOL_CALL>>>\n" +
				`{"tool": "read_file", "parameters": {"path": "a.go"}}` +
				"\n<<<END_TOOL_CALL>>>\n<<<TOOL_CALL>>>\n" +
				`{"tool": "read_file", "parameters": {"path": "a.go"}}` +
				"\n<<<END_TOOL_CALL>>>",
			expected: []ToolCall{
				{Tool: "read_file", Parameters: map[string]any{"path": "a.go"}},
			},
		},
		{
			name: "missing required parameter drops the call",
			text: "<<<TOOL_CALL>>>\n" +
				`{"tool": "write_file", "parameters": {"content": "orphan"}}` +
				"\n<<<END_TOOL_CALL>>>",
			expected: nil,
		},
		{
			name:     "plain prose yields nothing",
			text:     "The task is complete. I updated the parser and all tests pass.",
			expected: nil,
		},
		{
			name: "higher priority format wins over fenced block",
			text: "<<<TOOL_CALL>>>\n" +
				`{"tool": "read_file", "parameters": {"path": "real.go"}}` +
				"\n<<<END_TOOL_CALL>>>\n```json\n" +
				`{"tool": "read_file", "parameters": {"path": "ignored.go"}}` +
				"\n```",
			expected: []ToolCall{
				{Tool: "read_file", Parameters: map[string]any{"path": "real.go"}},
			},
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			got := ParseText(sc.text)
			if diff := cmp.Diff(sc.expected, got); diff != "" {
				t.Errorf("ParseText mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNative(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name     string
		raw      []RawCall
		expected []ToolCall
	}{
		{
			name: "well formed arguments",
			raw: []RawCall{
				{ID: "call_1", Name: "read_file", Arguments: `{"path": "main.go"}`},
			},
			expected: []ToolCall{
				{ID: "call_1", Tool: "read_file", Parameters: map[string]any{"path": "main.go"}},
			},
		},
		{
			name: "aliased name normalized",
			raw: []RawCall{
				{ID: "call_2", Name: "Bash", Arguments: `{"command": "ls"}`},
			},
			expected: []ToolCall{
				{ID: "call_2", Tool: "execute_command", Parameters: map[string]any{"command": "ls"}},
			},
		},
		{
			name: "unknown tool dropped",
			raw: []RawCall{
				{ID: "call_3", Name: "summon", Arguments: `{"path": "x"}`},
			},
			expected: nil,
		},
		{
			name: "double encoded arguments",
			raw: []RawCall{
				{ID: "call_4", Name: "read_file", Arguments: `"{\"path\": \"a.go\"}"`},
			},
			expected: []ToolCall{
				{ID: "call_4", Tool: "read_file", Parameters: map[string]any{"path": "a.go"}},
			},
		},
		{
			name: "unrecoverable arguments dropped",
			raw: []RawCall{
				{ID: "call_5", Name: "write_file", Arguments: `{"content`},
			},
			expected: nil,
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			got := ParseNative(sc.raw)
			if diff := cmp.Diff(sc.expected, got); diff != "" {
				t.Errorf("ParseNative mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
