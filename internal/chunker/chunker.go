// Package chunker splits document text into overlapping passages sized for
// embedding and retrieval.
//
// The splitter works recursively: text is divided on the first separator,
// segments still longer than the chunk size are re-divided on the next
// separator, and segments are finally reassembled into windows of roughly
// chunk-size characters where consecutive windows share the configured
// overlap. An empty separator ("") acts as a hard character split for text
// with no usable delimiters.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Defaults chosen for short passage retrieval: word-boundary splitting only.
const (
	DefaultSize    = 150
	DefaultOverlap = 20
)

// ErrInvalidConfig indicates the splitter configuration is unusable.
var ErrInvalidConfig = errors.New("invalid chunker config")

// Config controls how text is split.
type Config struct {
	// Size is the maximum chunk length in characters. Must be > 0.
	Size int

	// Overlap is the number of characters consecutive chunks share.
	// Must satisfy 0 <= Overlap < Size.
	Overlap int

	// Separators are tried in order; "" means hard character split.
	Separators []string
}

// DefaultConfig returns the standard word-boundary configuration.
func DefaultConfig() Config {
	return Config{
		Size:       DefaultSize,
		Overlap:    DefaultOverlap,
		Separators: []string{" "},
	}
}

// Splitter divides text into overlapping chunks. Safe for concurrent use;
// it holds no mutable state.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// New creates a Splitter, validating the configuration.
func New(cfg Config) (*Splitter, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be > 0, got %d", ErrInvalidConfig, cfg.Size)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", ErrInvalidConfig, cfg.Overlap)
	}

	seps := cfg.Separators
	if len(seps) == 0 {
		seps = []string{" "}
	}

	return &Splitter{
		size:       cfg.Size,
		overlap:    cfg.Overlap,
		separators: append([]string(nil), seps...),
	}, nil
}

// Split breaks text into non-empty chunks preserving source order.
// Empty input (after trimming) yields a nil slice; callers treat that as a
// normal result, not an error.
//
// Every chunk is at most Size characters except a single indivisible token
// longer than Size, which is emitted whole rather than truncated.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

// split recursively divides text using the given separator list.
func (s *Splitter) split(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= s.size {
		return []string{text}
	}
	if len(separators) == 0 {
		// No way left to divide this token; never truncate content.
		return []string{text}
	}

	sep := separators[0]
	if sep == "" {
		return s.hardSplit(text)
	}

	parts := strings.Split(text, sep)

	var chunks []string
	var window []string // accumulated parts for the current chunk
	windowLen := 0      // rune length of window joined by sep

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(window, sep))
	}

	sepLen := utf8.RuneCountInString(sep)

	for _, part := range parts {
		if part == "" {
			continue // collapse consecutive separators
		}

		partLen := utf8.RuneCountInString(part)

		// A single part longer than the chunk size is re-split with the
		// next separator and its chunks spliced in as-is.
		if partLen > s.size {
			flush()
			window, windowLen = nil, 0
			chunks = append(chunks, s.split(part, separators[1:])...)
			continue
		}

		// Emit the current window once adding this part would overflow,
		// then retain a tail of roughly Overlap characters so consecutive
		// chunks share content.
		joined := partLen
		if windowLen > 0 {
			joined += windowLen + sepLen
		}
		if joined > s.size && windowLen > 0 {
			flush()
			for windowLen > s.overlap ||
				(windowLen+sepLen+partLen > s.size && windowLen > 0) {
				head := utf8.RuneCountInString(window[0])
				windowLen -= head
				if len(window) > 1 {
					windowLen -= sepLen
				}
				window = window[1:]
			}
		}

		window = append(window, part)
		if windowLen == 0 {
			windowLen = partLen
		} else {
			windowLen += sepLen + partLen
		}
	}

	flush()
	return chunks
}

// hardSplit slices text at character boundaries, advancing by Size-Overlap
// so consecutive chunks share exactly Overlap characters.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.size - s.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
