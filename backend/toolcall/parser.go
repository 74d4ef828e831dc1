package toolcall

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseNative converts provider-native tool calls into normalized ToolCalls.
// Argument payloads that fail strict JSON parsing go through the per-tool
// partial-extraction pass so a call truncated mid-stream still executes when
// its required fields survived. Calls that cannot recover their required
// fields are dropped.
func ParseNative(raw []RawCall) []ToolCall {
	var calls []ToolCall
	for _, rc := range raw {
		tool, ok := NormalizeName(rc.Name)
		if !ok {
			slog.Debug("dropping call for unknown tool", "tool", rc.Name)
			continue
		}

		var params map[string]any
		if err := json.Unmarshal([]byte(rc.Arguments), &params); err != nil || params == nil {
			params = recoverPartial(tool, rc.Arguments)
		}
		if params == nil || !hasRequired(tool, params) {
			slog.Debug("dropping unrecoverable tool call", "tool", tool)
			continue
		}

		calls = append(calls, ToolCall{ID: rc.ID, Tool: tool, Parameters: params})
	}
	return calls
}

var (
	delimitedBlockRe = regexp.MustCompile(`(?s)<<<TOOL_CALL>>>(.*?)<<<END_TOOL_CALL>>>`)
	bareNameBlockRe  = regexp.MustCompile(`(?s)<<<TOOL_CALL>>>\s*([A-Za-z][\w-]*)\s*(\{.*?\})\s*<<<END_TOOL_CALL>>>`)
	fencedBlockRe    = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*?\\})\\s*```")
	tagToolRe        = regexp.MustCompile(`(?mi)^\s*Tool:\s*([A-Za-z][\w-]*)\s*$`)
	tagParamsRe      = regexp.MustCompile(`(?mi)^\s*Parameters:\s*(\{.*)$`)
)

// ParseText scans free-form response text for tool calls in the formats
// models actually emit when native tool-calling is unavailable. Strategies
// run in priority order and the first one that yields anything wins for the
// message; a lower-priority strategy never adds to a higher one's results,
// it only runs when everything above came up empty. Duplicates (same tool,
// identical parameters) are suppressed.
func ParseText(text string) []ToolCall {
	strategies := []func(string) []ToolCall{
		parseDelimitedBlocks,
		parseBareNameBlocks,
		parseFencedBlocks,
		parseTagFormat,
		parseInlineJSON,
	}

	for _, strategy := range strategies {
		if calls := dedupe(strategy(text)); len(calls) > 0 {
			return calls
		}
	}
	return nil
}

func parseDelimitedBlocks(text string) []ToolCall {
	var calls []ToolCall
	for _, match := range delimitedBlockRe.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(match[1])
		if call, ok := callFromJSONObject(body); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// parseBareNameBlocks handles the malformed variant where the model writes
// the tool name on its own line followed by a JSON object of parameters.
func parseBareNameBlocks(text string) []ToolCall {
	var calls []ToolCall
	for _, match := range bareNameBlockRe.FindAllStringSubmatch(text, -1) {
		tool, ok := NormalizeName(match[1])
		if !ok {
			continue
		}
		var params map[string]any
		if err := json.Unmarshal([]byte(match[2]), &params); err != nil {
			continue
		}
		if hasRequired(tool, params) {
			calls = append(calls, ToolCall{Tool: tool, Parameters: params})
		}
	}
	return calls
}

func parseFencedBlocks(text string) []ToolCall {
	var calls []ToolCall
	for _, match := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		if call, ok := callFromJSONObject(strings.TrimSpace(match[1])); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// parseTagFormat handles the "Tool: name" / "Parameters: {...}" line pair
// some models emit instead of any JSON envelope.
func parseTagFormat(text string) []ToolCall {
	toolMatches := tagToolRe.FindAllStringSubmatchIndex(text, -1)
	var calls []ToolCall
	for _, loc := range toolMatches {
		name := text[loc[2]:loc[3]]
		tool, ok := NormalizeName(name)
		if !ok {
			continue
		}

		rest := text[loc[1]:]
		paramsMatch := tagParamsRe.FindStringSubmatch(rest)
		if paramsMatch == nil {
			continue
		}
		obj := extractBalancedObject(paramsMatch[1])
		if obj == "" {
			continue
		}
		var params map[string]any
		if err := json.Unmarshal([]byte(obj), &params); err != nil {
			continue
		}
		if hasRequired(tool, params) {
			calls = append(calls, ToolCall{Tool: tool, Parameters: params})
		}
	}
	return calls
}

// parseInlineJSON finds bare JSON objects carrying both a "tool" and a
// "parameters" key anywhere in the text.
func parseInlineJSON(text string) []ToolCall {
	var calls []ToolCall
	for offset := 0; offset < len(text); {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		obj := extractBalancedObject(text[start:])
		if obj == "" {
			offset = start + 1
			continue
		}

		if gjson.Get(obj, "tool").Exists() && gjson.Get(obj, "parameters").Exists() {
			if call, ok := callFromJSONObject(obj); ok {
				calls = append(calls, call)
			}
		}
		offset = start + len(obj)
	}
	return calls
}

// callFromJSONObject parses a {"tool": ..., "parameters": {...}} object.
// A "name"/"arguments" shape is accepted too since models mix the two.
func callFromJSONObject(body string) (ToolCall, bool) {
	var envelope struct {
		Tool       string         `json:"tool"`
		Name       string         `json:"name"`
		Parameters map[string]any `json:"parameters"`
		Arguments  map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return ToolCall{}, false
	}

	name := envelope.Tool
	if name == "" {
		name = envelope.Name
	}
	tool, ok := NormalizeName(name)
	if !ok {
		return ToolCall{}, false
	}

	params := envelope.Parameters
	if params == nil {
		params = envelope.Arguments
	}
	if params == nil {
		params = map[string]any{}
	}
	if !hasRequired(tool, params) {
		return ToolCall{}, false
	}
	return ToolCall{Tool: tool, Parameters: params}, true
}

// extractBalancedObject returns the shortest prefix of s that forms a
// balanced JSON object, honoring string literals and escapes. Empty when s
// does not start (after whitespace) with '{' or never closes.
func extractBalancedObject(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "{") {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

func dedupe(calls []ToolCall) []ToolCall {
	if len(calls) < 2 {
		return calls
	}
	seen := make(map[string]struct{}, len(calls))
	out := calls[:0]
	for _, call := range calls {
		key := call.Tool
		if encoded, err := json.Marshal(call.Parameters); err == nil {
			key += string(encoded)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, call)
	}
	return out
}
