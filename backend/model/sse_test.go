package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSSEScanner(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name     string
		chunks   []string
		expected []string
		done     bool
	}{
		{
			name:     "single event in one chunk",
			chunks:   []string{"data: {\"a\":1}\n\n"},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "event split across chunks",
			chunks:   []string{"data: {\"a\"", ":1}\n"},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "split inside the data prefix",
			chunks:   []string{"da", "ta: {\"a\":1}\n"},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "crlf line endings",
			chunks:   []string{"data: {\"a\":1}\r\n\r\n"},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "done sentinel terminates",
			chunks:   []string{"data: {\"a\":1}\n", "data: [DONE]\n", "data: {\"b\":2}\n"},
			expected: []string{`{"a":1}`},
			done:     true,
		},
		{
			name:     "non data lines skipped",
			chunks:   []string{"event: message\nid: 7\ndata: {\"a\":1}\n: keepalive\n"},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "missing trailing newline flushed by Rest",
			chunks:   []string{"data: {\"a\":1}"},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "multibyte rune split across chunks",
			chunks:   []string{"data: {\"t\":\"\xe2\x9c", "\x94\"}\n"},
			expected: []string{"{\"t\":\"✔\"}"},
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			scanner := &sseScanner{}
			var got []string
			for _, chunk := range sc.chunks {
				got = append(got, scanner.Feed([]byte(chunk))...)
			}
			got = append(got, scanner.Rest()...)

			if diff := cmp.Diff(sc.expected, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
			if scanner.Done() != sc.done {
				t.Errorf("Done() = %v, want %v", scanner.Done(), sc.done)
			}
		})
	}
}

// Chunk boundaries must never change what the scanner yields.
func TestSSEScannerChunkingInvariance(t *testing.T) {
	t.Parallel()

	stream := "event: message\ndata: {\"content\":\"héllo ✔\"}\r\n\ndata: {\"n\":2}\ndata: [DONE]\n"
	want := []string{`{"content":"héllo ✔"}`, `{"n":2}`}

	for size := 1; size <= len(stream); size++ {
		scanner := &sseScanner{}
		var got []string
		for start := 0; start < len(stream); start += size {
			end := start + size
			if end > len(stream) {
				end = len(stream)
			}
			got = append(got, scanner.Feed([]byte(stream[start:end]))...)
		}
		got = append(got, scanner.Rest()...)

		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("chunk size %d changed the events (-want +got):\n%s", size, diff)
		}
		if !scanner.Done() {
			t.Fatalf("chunk size %d: sentinel not recognized", size)
		}
	}
}
