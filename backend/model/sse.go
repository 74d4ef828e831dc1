package model

import (
	"strings"
	"unicode/utf8"
)

// doneSentinel terminates a newline-delimited event stream.
const doneSentinel = "[DONE]"

// sseScanner splits an incremental byte stream into server-sent-event data
// payloads. Bytes arrive in arbitrary chunks: the scanner buffers the
// trailing partial line (and any trailing partial UTF-8 rune) across feeds
// so the same stream produces the same events regardless of how it was
// chunked.
type sseScanner struct {
	carry []byte
	done  bool
}

// Feed consumes one chunk and returns the complete data payloads it
// finished. Non-data lines and blank event separators are skipped; the
// [DONE] sentinel flips the scanner into a terminal state.
func (s *sseScanner) Feed(chunk []byte) []string {
	if s.done {
		return nil
	}
	s.carry = append(s.carry, chunk...)

	var events []string
	for {
		idx := indexNewline(s.carry)
		if idx < 0 {
			return events
		}
		line := strings.TrimRight(string(s.carry[:idx]), "\r")
		s.carry = s.carry[idx+1:]

		data, ok := dataPayload(line)
		if !ok {
			continue
		}
		if data == doneSentinel {
			s.done = true
			return events
		}
		events = append(events, data)
	}
}

// Rest returns any buffered payload once the stream ends, covering servers
// that omit the final newline.
func (s *sseScanner) Rest() []string {
	if s.done || len(s.carry) == 0 {
		return nil
	}
	line := strings.TrimRight(string(s.carry), "\r")
	s.carry = nil
	if !utf8.ValidString(line) {
		return nil
	}
	data, ok := dataPayload(line)
	if !ok || data == doneSentinel {
		return nil
	}
	return []string{data}
}

func (s *sseScanner) Done() bool {
	return s.done
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}

// dataPayload extracts the payload of a "data:" line. Other line types
// (comments, event names, ids) are not an error, just not data.
func dataPayload(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
