package model

import (
	"testing"

	"github.com/conjureai/conjure/backend/toolcall"
)

func TestBuildAnthropicMessages(t *testing.T) {
	t.Parallel()

	history := []Message{
		UserMessage("fix the bug"),
		AssistantMessage("Looking at two files.", []toolcall.ToolCall{
			{ID: "toolu_1", Tool: "read_file", Parameters: map[string]any{"path": "a.go"}},
			{ID: "toolu_2", Tool: "read_file", Parameters: map[string]any{"path": "b.go"}},
		}),
		ToolResultMessage("toolu_1", "read_file", "contents of a"),
		ToolResultMessage("toolu_2", "read_file", "contents of b"),
		AssistantMessage("Done.", nil),
	}

	wire := buildAnthropicMessages(history)

	if len(wire) != 4 {
		t.Fatalf("message count = %d, want 4", len(wire))
	}

	assistant := wire[1]
	if assistant.Role != "assistant" || len(assistant.Content) != 3 {
		t.Fatalf("assistant message = %+v", assistant)
	}
	if assistant.Content[0].Type != "text" || assistant.Content[1].Type != "tool_use" {
		t.Errorf("block types = %s, %s", assistant.Content[0].Type, assistant.Content[1].Type)
	}
	if assistant.Content[1].ID != "toolu_1" || assistant.Content[1].Name != "read_file" {
		t.Errorf("tool_use block = %+v", assistant.Content[1])
	}

	// Consecutive tool results merge into a single user message, which the
	// protocol requires.
	results := wire[2]
	if results.Role != "user" || len(results.Content) != 2 {
		t.Fatalf("tool result message = %+v", results)
	}
	for i, id := range []string{"toolu_1", "toolu_2"} {
		block := results.Content[i]
		if block.Type != "tool_result" || block.ToolUseID != id {
			t.Errorf("block %d = %+v", i, block)
		}
	}
}

func TestParseAnthropicResponse(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"content":[
			{"type":"text","text":"I'll write the file."},
			{"type":"tool_use","id":"toolu_3","name":"write_file","input":{"path":"x.txt","content":"hi"}}
		],
		"stop_reason":"tool_use",
		"usage":{"input_tokens":9,"output_tokens":4}
	}`)

	resp, err := parseAnthropicResponse(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Content != "I'll write the file." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("calls = %+v", resp.ToolCalls)
	}
	call := resp.ToolCalls[0]
	if call.ID != "toolu_3" || call.Tool != "write_file" || call.Parameters["path"] != "x.txt" {
		t.Errorf("call = %+v", call)
	}
	if resp.Usage.Total() != 13 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}
