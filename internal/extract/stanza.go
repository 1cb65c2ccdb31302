package extract

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 1024 * 1024

type field struct {
	key   string
	value string
}

// A stanza is one blank-line separated block of "Key: value" lines.
type stanza []field

func (s stanza) get(key string) (string, bool) {
	for _, f := range s {
		if f.key == key {
			return f.value, true
		}
	}

	return "", false
}

func (s stanza) getFold(key string) (string, bool) {
	for _, f := range s {
		if strings.EqualFold(f.key, key) {
			return f.value, true
		}
	}

	return "", false
}

// stanzaReader splits RFC 822 style text into stanzas. Lines starting with a
// space or tab continue the previous field.
type stanzaReader struct {
	scanner *bufio.Scanner
	line    int
}

func newStanzaReader(r io.Reader) *stanzaReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &stanzaReader{scanner: scanner}
}

// Next returns the next non-empty stanza, or io.EOF when the input is
// exhausted.
func (r *stanzaReader) Next() (stanza, error) {
	var s stanza
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimRight(r.scanner.Text(), "\r")

		if strings.TrimSpace(text) == "" {
			if len(s) > 0 {
				return s, nil
			}

			continue
		}

		if text[0] == ' ' || text[0] == '\t' {
			if len(s) == 0 {
				return nil, fmt.Errorf("line %d: continuation line without a field", r.line)
			}

			last := &s[len(s)-1]
			last.value += "\n" + strings.TrimSpace(text)
			continue
		}

		key, value, found := strings.Cut(text, ":")
		if !found || key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("line %d: expected \"Key: value\", found %q", r.line, truncate(text, 40))
		}

		s = append(s, field{key: key, value: strings.TrimSpace(value)})
	}

	err := r.scanner.Err()
	if err != nil {
		return nil, err
	}

	if len(s) > 0 {
		return s, nil
	}

	return nil, io.EOF
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
