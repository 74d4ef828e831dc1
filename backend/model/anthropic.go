package model

import (
	"encoding/json"

	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
)

// Wire types for the Anthropic messages protocol.

type anthropicContentBlock struct {
	Type string `json:"type"`

	// text block
	Text string `json:"text,omitempty"`

	// tool_use block
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result block
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string                 `json:"model"`
	System    string                 `json:"system,omitempty"`
	Messages  []anthropicMessage     `json:"messages"`
	MaxTokens int                    `json:"max_tokens"`
	Temp      float64                `json:"temperature"`
	Stream    bool                   `json:"stream,omitempty"`
	Tools     []tool.AnthropicSchema `json:"tools,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      *anthropicUsage         `json:"usage"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildAnthropicMessages maps neutral history onto the messages protocol:
// tool results travel as user-role tool_result blocks, assistant tool calls
// as tool_use blocks. Consecutive tool results merge into one user message,
// which the protocol requires.
func buildAnthropicMessages(messages []Message) []anthropicMessage {
	var out []anthropicMessage
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, anthropicMessage{
				Role:    "user",
				Content: []anthropicContentBlock{{Type: "text", Text: m.Content}},
			})
		case RoleAssistant:
			var blocks []anthropicContentBlock
			if m.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				input, err := json.Marshal(call.Parameters)
				if err != nil {
					input = []byte("{}")
				}
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Tool,
					Input: input,
				})
			}
			if len(blocks) == 0 {
				blocks = []anthropicContentBlock{{Type: "text", Text: ""}}
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		case RoleTool:
			block := anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
			}
			if n := len(out); n > 0 && out[n-1].Role == "user" && out[n-1].Content[0].Type == "tool_result" {
				out[n-1].Content = append(out[n-1].Content, block)
			} else {
				out = append(out, anthropicMessage{Role: "user", Content: []anthropicContentBlock{block}})
			}
		}
	}
	return out
}

// parseAnthropicResponse handles the non-streaming response body.
func parseAnthropicResponse(body []byte) (*ChatResponse, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	out := &ChatResponse{UsedNativeTools: true}
	if resp.Usage != nil {
		out.Usage = Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	}

	var raw []toolcall.RawCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			raw = append(raw, toolcall.RawCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	out.ToolCalls = toolcall.ParseNative(raw)
	return out, nil
}
