package model

import (
	"encoding/json"
	"strings"

	"github.com/conjureai/conjure/backend/toolcall"
)

// ChunkFn receives each text fragment as it arrives from a streaming
// response. Tool call fragments are accumulated internally and never
// surfaced through the callback.
type ChunkFn func(text string)

// streamReader turns SSE payloads into a final ChatResponse. Feed is
// called once per complete data payload; Finish assembles the result
// after the stream ends.
type streamReader interface {
	Feed(payload string)
	Finish() *ChatResponse
}

// openAIStreamReader accumulates chat-completions deltas. Tool call
// fragments arrive keyed by index, with the name on the first fragment
// and argument text spread across later ones.
type openAIStreamReader struct {
	content strings.Builder
	calls   map[int]*toolcall.RawCall
	order   []int
	usage   Usage
	onChunk ChunkFn
}

func newOpenAIStreamReader(onChunk ChunkFn) *openAIStreamReader {
	return &openAIStreamReader{calls: make(map[int]*toolcall.RawCall), onChunk: onChunk}
}

type openAIStreamEvent struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
}

func (r *openAIStreamReader) Feed(payload string) {
	var ev openAIStreamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		// Malformed events are skipped rather than aborting the stream.
		return
	}
	if ev.Usage != nil {
		r.usage.InputTokens = ev.Usage.PromptTokens
		r.usage.OutputTokens = ev.Usage.CompletionTokens
	}
	if len(ev.Choices) == 0 {
		return
	}
	delta := ev.Choices[0].Delta
	if delta.Content != "" {
		r.content.WriteString(delta.Content)
		if r.onChunk != nil {
			r.onChunk(delta.Content)
		}
	}
	for _, frag := range delta.ToolCalls {
		call, ok := r.calls[frag.Index]
		if !ok {
			call = &toolcall.RawCall{}
			r.calls[frag.Index] = call
			r.order = append(r.order, frag.Index)
		}
		if frag.ID != "" {
			call.ID = frag.ID
		}
		if frag.Function.Name != "" {
			call.Name += frag.Function.Name
		}
		call.Arguments += frag.Function.Arguments
	}
}

func (r *openAIStreamReader) Finish() *ChatResponse {
	var raw []toolcall.RawCall
	for _, idx := range r.order {
		raw = append(raw, *r.calls[idx])
	}
	return &ChatResponse{
		Content:         r.content.String(),
		ToolCalls:       toolcall.ParseNative(raw),
		UsedNativeTools: true,
		Usage:           r.usage,
	}
}

// anthropicStreamReader accumulates messages-protocol events. Tool use
// blocks open with content_block_start carrying id and name, then the
// input JSON arrives piecewise through input_json_delta events.
type anthropicStreamReader struct {
	content strings.Builder
	calls   map[int]*toolcall.RawCall
	order   []int
	usage   Usage
	onChunk ChunkFn
}

func newAnthropicStreamReader(onChunk ChunkFn) *anthropicStreamReader {
	return &anthropicStreamReader{calls: make(map[int]*toolcall.RawCall), onChunk: onChunk}
}

type anthropicStreamEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Message *struct {
		Usage *anthropicUsage `json:"usage"`
	} `json:"message"`
	Usage *anthropicUsage `json:"usage"`
}

func (r *anthropicStreamReader) Feed(payload string) {
	var ev anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return
	}
	switch ev.Type {
	case "message_start":
		if ev.Message != nil && ev.Message.Usage != nil {
			r.usage.InputTokens = ev.Message.Usage.InputTokens
			r.usage.OutputTokens = ev.Message.Usage.OutputTokens
		}
	case "message_delta":
		if ev.Usage != nil {
			if ev.Usage.InputTokens > 0 {
				r.usage.InputTokens = ev.Usage.InputTokens
			}
			r.usage.OutputTokens = ev.Usage.OutputTokens
		}
	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			call := &toolcall.RawCall{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name}
			r.calls[ev.Index] = call
			r.order = append(r.order, ev.Index)
		}
	case "content_block_delta":
		if ev.Delta == nil {
			return
		}
		switch ev.Delta.Type {
		case "text_delta":
			r.content.WriteString(ev.Delta.Text)
			if r.onChunk != nil {
				r.onChunk(ev.Delta.Text)
			}
		case "input_json_delta":
			if call, ok := r.calls[ev.Index]; ok {
				call.Arguments += ev.Delta.PartialJSON
			}
		}
	}
}

func (r *anthropicStreamReader) Finish() *ChatResponse {
	var raw []toolcall.RawCall
	for _, idx := range r.order {
		call := *r.calls[idx]
		if call.Arguments == "" {
			call.Arguments = "{}"
		}
		raw = append(raw, call)
	}
	return &ChatResponse{
		Content:         r.content.String(),
		ToolCalls:       toolcall.ParseNative(raw),
		UsedNativeTools: true,
		Usage:           r.usage,
	}
}
