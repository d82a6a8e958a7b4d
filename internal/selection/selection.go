// Package selection locates a reader's highlighted text inside a chunk and
// derives the bounded context around it.
package selection

import (
	"errors"
	"strings"
	"unicode"
)

// MaxWords bounds both the selection and each side of the context window.
const MaxWords = 50

var (
	ErrEmptySelection    = errors.New("selection is empty")
	ErrSelectionTooLong  = errors.New("selection is longer than 50 words")
	ErrSelectionNotFound = errors.New("selection not found in chunk")
)

// ContextWindow is the text immediately around a selection. It never
// contains the selection itself.
type ContextWindow struct {
	Before string
	After  string
}

// Extraction is the result of a successful Extract.
type Extraction struct {
	// Raw is the selection exactly as the reader highlighted it.
	Raw string
	// Text is the trimmed, whitespace-collapsed selection that was matched.
	Text    string
	Context ContextWindow
	// Offset is the byte offset of the match in the normalized chunk.
	Offset int
}

// Words returns the number of whitespace-delimited tokens in s.
func Words(s string) int {
	return len(strings.Fields(s))
}

// Normalize collapses every run of whitespace in s to a single space.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Extract validates raw against chunk and returns the context window around
// the first occurrence of the selection. When the selection occurs more than
// once, context is always taken around the first match.
func Extract(chunk, raw string) (Extraction, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Extraction{}, ErrEmptySelection
	}
	if Words(trimmed) > MaxWords {
		return Extraction{}, ErrSelectionTooLong
	}

	normalized := Normalize(chunk)
	needle := Normalize(trimmed)
	idx := strings.Index(normalized, needle)
	if idx < 0 {
		return Extraction{}, ErrSelectionNotFound
	}

	return Extraction{
		Raw:  raw,
		Text: needle,
		Context: ContextWindow{
			Before: lastWords(normalized[:idx], MaxWords),
			After:  firstWords(normalized[idx+len(needle):], MaxWords),
		},
		Offset: idx,
	}, nil
}

func lastWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
