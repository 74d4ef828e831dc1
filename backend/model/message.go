package model

import (
	"github.com/conjureai/conjure/backend/toolcall"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of conversation history in protocol-neutral form.
// The codecs map it onto each wire protocol's message shape.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []toolcall.ToolCall

	// ToolCallID and ToolName are set on tool-result messages so protocols
	// that correlate results to calls can do so.
	ToolCallID string
	ToolName   string
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, calls []toolcall.ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func ToolResultMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName}
}

// Usage is the token accounting a provider reports for one turn.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// ChatResponse is what one chat turn yields to the orchestrator.
type ChatResponse struct {
	Content         string
	ToolCalls       []toolcall.ToolCall
	UsedNativeTools bool
	Usage           Usage
}

// UsageTracker receives token usage after every successful call. The
// orchestrator's correctness never depends on what the tracker does with it.
type UsageTracker interface {
	RecordUsage(model string, usage Usage)
}
