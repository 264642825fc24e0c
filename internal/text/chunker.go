package text

import (
	"errors"
	"maps"
	"strings"
	"unicode"

	"voicerag/internal/rag"
)

var ErrInvalidChunking = errors.New("chunk overlap must be non-negative and smaller than chunk size")

// Separators in order of preference. A chunk ends right after the separator.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Splitter cuts text into overlapping windows of at most size runes, preferring
// paragraph, line, sentence and word boundaries over hard cuts.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunking
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns the chunks of text. Consecutive chunks share at least overlap
// runes; whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	r := []rune(text)
	n := len(r)
	if n == 0 {
		return nil
	}

	var chunks []string
	start, prevEnd := 0, 0
	for start < n {
		end := min(start+s.size, n)
		if end < n {
			lo := max(start+s.overlap, prevEnd)
			end = breakPoint(r, lo, end)
		}

		if chunk := string(r[start:end]); strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end >= n {
			break
		}

		prevEnd = end
		start = wordStart(r, end-s.overlap, start+1)
	}
	return chunks
}

// SplitDocuments splits each document, copying its metadata onto every chunk.
func (s *Splitter) SplitDocuments(docs []rag.Document) []rag.Chunk {
	var chunks []rag.Chunk
	for _, d := range docs {
		for _, c := range s.Split(d.Content) {
			chunks = append(chunks, rag.Chunk{
				Content:  c,
				Metadata: maps.Clone(d.Metadata),
			})
		}
	}
	return chunks
}

// breakPoint picks the chunk end in (lo, hi]: the last occurrence of the most
// preferred separator, or hi when no separator fits.
func breakPoint(r []rune, lo, hi int) int {
	for _, sep := range separators {
		for end := hi; end > lo; end-- {
			if end-len(sep) < 0 {
				break
			}
			if hasAt(r, end-len(sep), sep) {
				return end
			}
		}
	}
	return hi
}

func hasAt(r []rune, i int, sep []rune) bool {
	for j, c := range sep {
		if r[i+j] != c {
			return false
		}
	}
	return true
}

// wordStart moves pos back to the beginning of the word it falls in, never
// below floor. Without a whitespace boundary the original position is kept.
func wordStart(r []rune, pos, floor int) int {
	for p := pos; p > floor; p-- {
		if unicode.IsSpace(r[p-1]) {
			return p
		}
	}
	if floor <= pos && floor > 0 && unicode.IsSpace(r[floor-1]) {
		return floor
	}
	return pos
}
