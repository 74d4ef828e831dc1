package model

import (
	"encoding/json"

	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
)

// Wire types for the OpenAI chat-completions protocol.

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIMessage     `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
	Tools       []tool.OpenAISchema `json:"tools,omitempty"`
	StreamOpts  *openAIStreamOpts   `json:"stream_options,omitempty"`
}

type openAIStreamOpts struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// buildOpenAIMessages maps neutral history onto the wire shape. The system
// prompt travels as the leading system message.
func buildOpenAIMessages(system string, messages []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openAIMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		wire := openAIMessage{Role: string(m.Role), Content: m.Content}
		switch m.Role {
		case RoleAssistant:
			for _, call := range m.ToolCalls {
				wc := openAIToolCall{ID: call.ID, Type: "function"}
				wc.Function.Name = call.Tool
				args, err := json.Marshal(call.Parameters)
				if err != nil {
					args = []byte("{}")
				}
				wc.Function.Arguments = string(args)
				wire.ToolCalls = append(wire.ToolCalls, wc)
			}
		case RoleTool:
			wire.ToolCallID = m.ToolCallID
			wire.Name = m.ToolName
		}
		out = append(out, wire)
	}
	return out
}

// parseOpenAIToolCalls normalizes wire tool calls through the recovery
// parser, which also salvages truncated argument payloads.
func parseOpenAIToolCalls(wire []openAIToolCall) []toolcall.ToolCall {
	raw := make([]toolcall.RawCall, 0, len(wire))
	for _, wc := range wire {
		raw = append(raw, toolcall.RawCall{
			ID:        wc.ID,
			Name:      wc.Function.Name,
			Arguments: wc.Function.Arguments,
		})
	}
	return toolcall.ParseNative(raw)
}

// parseOpenAIResponse handles the non-streaming response body.
func parseOpenAIResponse(body []byte) (*ChatResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	out := &ChatResponse{UsedNativeTools: true}
	if resp.Usage != nil {
		out.Usage = Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		out.ToolCalls = parseOpenAIToolCalls(choice.Message.ToolCalls)
	}
	return out, nil
}
