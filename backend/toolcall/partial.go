package toolcall

import (
	"encoding/json"
	"regexp"
	"strings"
)

// TruncationMarker is appended to content recovered from an argument payload
// that was cut off mid-stream, so the model sees the write was incomplete.
const TruncationMarker = "<!-- truncated -->"

var stringFieldRe = map[string]*regexp.Regexp{}

func init() {
	for _, field := range []string{"path", "command", "query", "pattern", "url", "repository", "search", "replace", "directory"} {
		stringFieldRe[field] = regexp.MustCompile(`"` + field + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	}
}

var (
	closedContentRe = regexp.MustCompile(`(?s)"content"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	openContentRe   = regexp.MustCompile(`(?s)"content"\s*:\s*"(.*)$`)
)

// recoverPartial scavenges what it can from an argument string that failed
// strict JSON parsing, typically because the stream stopped mid-value. It is
// a heuristic cascade, not a grammar: a complete short field like "path"
// usually survives truncation of a long trailing "content" field, and a call
// with its required fields intact is worth keeping.
func recoverPartial(tool, raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// The payload may be valid JSON that merely arrived double-encoded.
	if unquoted, err := unquoteIfQuoted(raw); err == nil {
		var params map[string]any
		if json.Unmarshal([]byte(unquoted), &params) == nil && params != nil {
			return params
		}
		raw = unquoted
	}

	params := map[string]any{}

	for field, re := range stringFieldRe {
		if match := re.FindStringSubmatch(raw); match != nil {
			if decoded, err := unescapeJSONString(match[1]); err == nil {
				params[field] = decoded
			}
		}
	}

	// A "content" string that closes is complete; one that runs to the end
	// of the payload was cut off by the stream.
	if match := closedContentRe.FindStringSubmatch(raw); match != nil {
		if decoded, err := unescapeJSONString(match[1]); err == nil {
			params["content"] = decoded
		}
	} else if match := openContentRe.FindStringSubmatch(raw); match != nil {
		// The stream died inside the content string. Keep everything up to
		// the cut and mark it so the model knows to rewrite the file.
		decoded := bestEffortUnescape(match[1])
		params["content"] = decoded + "\n" + TruncationMarker
	}

	if len(params) == 0 {
		return nil
	}
	return params
}

func unquoteIfQuoted(s string) (string, error) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var out string
		err := json.Unmarshal([]byte(s), &out)
		return out, err
	}
	return s, nil
}

func unescapeJSONString(s string) (string, error) {
	var out string
	err := json.Unmarshal([]byte(`"`+s+`"`), &out)
	return out, err
}

// bestEffortUnescape decodes a JSON string body that may end in the middle
// of an escape sequence. The dangling escape is dropped.
func bestEffortUnescape(s string) string {
	// Trim a trailing lone backslash so the quote below stays balanced.
	trimmed := s
	backslashes := 0
	for i := len(trimmed) - 1; i >= 0 && trimmed[i] == '\\'; i-- {
		backslashes++
	}
	if backslashes%2 == 1 {
		trimmed = trimmed[:len(trimmed)-1]
	}

	if out, err := unescapeJSONString(trimmed); err == nil {
		return out
	}

	// Fall back to the raw bytes with the common escapes replaced.
	replacer := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
	return replacer.Replace(trimmed)
}
