package model

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/conjureai/conjure/backend/toolcall"
)

func TestOpenAIStreamReader(t *testing.T) {
	t.Parallel()

	var chunks []string
	reader := newOpenAIStreamReader(func(text string) { chunks = append(chunks, text) })

	payloads := []string{
		`{"choices":[{"delta":{"content":"Let me "}}]}`,
		`{"choices":[{"delta":{"content":"check."}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"read_file","arguments":""}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"pa"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"th\": \"main.go\"}"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"list_files","arguments":"{}"}}]}}]}`,
		`not even json`,
		`{"choices":[],"usage":{"prompt_tokens":120,"completion_tokens":34}}`,
	}
	for _, p := range payloads {
		reader.Feed(p)
	}
	got := reader.Finish()

	if strings.Join(chunks, "") != "Let me check." {
		t.Errorf("chunk callback saw %q", strings.Join(chunks, ""))
	}

	want := &ChatResponse{
		Content: "Let me check.",
		ToolCalls: []toolcall.ToolCall{
			{ID: "call_a", Tool: "read_file", Parameters: map[string]any{"path": "main.go"}},
			{ID: "call_b", Tool: "list_files", Parameters: map[string]any{}},
		},
		UsedNativeTools: true,
		Usage:           Usage{InputTokens: 120, OutputTokens: 34},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestAnthropicStreamReader(t *testing.T) {
	t.Parallel()

	var chunks []string
	reader := newAnthropicStreamReader(func(text string) { chunks = append(chunks, text) })

	payloads := []string{
		`{"type":"message_start","message":{"usage":{"input_tokens":200,"output_tokens":1}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Editing now."}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"edit_file"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":" \"a.go\", \"search\": \"x\", \"replace\": \"y\"}"}}`,
		`{"type":"content_block_stop","index":1}`,
		`{"type":"message_delta","usage":{"output_tokens":57}}`,
	}
	for _, p := range payloads {
		reader.Feed(p)
	}
	got := reader.Finish()

	if strings.Join(chunks, "") != "Editing now." {
		t.Errorf("chunk callback saw %q", strings.Join(chunks, ""))
	}

	want := &ChatResponse{
		Content: "Editing now.",
		ToolCalls: []toolcall.ToolCall{
			{ID: "toolu_1", Tool: "edit_file", Parameters: map[string]any{
				"path": "a.go", "search": "x", "replace": "y",
			}},
		},
		UsedNativeTools: true,
		Usage:           Usage{InputTokens: 200, OutputTokens: 57},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

// A tool-use block whose input never arrives still yields a call when the
// tool has no required parameters.
func TestAnthropicStreamReaderEmptyInput(t *testing.T) {
	t.Parallel()

	reader := newAnthropicStreamReader(nil)
	reader.Feed(`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_9","name":"list_files"}}`)
	reader.Feed(`{"type":"content_block_stop","index":0}`)
	got := reader.Finish()

	if len(got.ToolCalls) != 1 || got.ToolCalls[0].Tool != "list_files" {
		t.Fatalf("unexpected calls: %+v", got.ToolCalls)
	}
}
