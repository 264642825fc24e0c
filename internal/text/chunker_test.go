package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicerag/internal/rag"
)

func sharedPrefixSuffix(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	for k := min(len(ra), len(rb)); k > 0; k-- {
		if string(ra[len(ra)-k:]) == string(rb[:k]) {
			return k
		}
	}
	return 0
}

func TestNewSplitter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"Valid", 300, 100, false},
		{"Zero Overlap", 300, 0, false},
		{"Zero Size", 0, 0, true},
		{"Negative Overlap", 300, -1, true},
		{"Overlap Equals Size", 300, 300, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidChunking)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplit_WordBoundaries(t *testing.T) {
	s, err := NewSplitter(10, 4)
	require.NoError(t, err)

	got := s.Split("one two three four five")
	assert.Equal(t, []string{"one two ", "two three ", "three four", "four five"}, got)
}

func TestSplit_ShortText(t *testing.T) {
	s, err := NewSplitter(300, 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"A short page."}, s.Split("A short page."))
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\n  "))
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	s, err := NewSplitter(60, 10)
	require.NoError(t, err)

	text := "First paragraph is here. It has two sentences.\n\nSecond paragraph follows with more words."
	chunks := s.Split(text)

	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "first chunk should end at the paragraph break: %q", chunks[0])
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	s, err := NewSplitter(40, 5)
	require.NoError(t, err)

	chunks := s.Split("Alpha beta gamma. Delta epsilon zeta eta theta iota kappa.")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Alpha beta gamma. ", chunks[0])
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	s, err := NewSplitter(300, 100)
	require.NoError(t, err)

	chunks := s.Split(strings.Repeat("x", 1000))
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 300)
	}
}

func TestSplit_SizeAndOverlapProperties(t *testing.T) {
	var b strings.Builder
	words := []string{"retrieval", "augmented", "generation", "grounds", "answers", "in", "documents", "über", "naïve", "index"}
	for p := 0; p < 12; p++ {
		for i := 0; i < 40+p*7; i++ {
			b.WriteString(words[(i*7+p)%len(words)])
			if i%9 == 8 {
				b.WriteString(". ")
			} else if i%23 == 22 {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Repeat("z", 750))

	for _, cfg := range []struct{ size, overlap int }{{300, 100}, {120, 40}, {50, 0}} {
		s, err := NewSplitter(cfg.size, cfg.overlap)
		require.NoError(t, err)

		chunks := s.Split(b.String())
		require.Greater(t, len(chunks), 1)

		for i, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), cfg.size, "chunk %d too long", i)
			if i > 0 {
				assert.GreaterOrEqual(t, sharedPrefixSuffix(chunks[i-1], c), cfg.overlap, "chunks %d and %d", i-1, i)
			}
		}

		joined := strings.Join(chunks, "")
		assert.Contains(t, joined, "zzzz")
	}
}

func TestSplitDocuments_PreservesMetadata(t *testing.T) {
	s, err := NewSplitter(30, 10)
	require.NoError(t, err)

	docs := []rag.Document{
		{Content: "Page one has a fair amount of text for splitting.", Metadata: map[string]string{rag.MetaSource: "book.pdf#page=1", rag.MetaPage: "1"}},
		{Content: "Tiny.", Metadata: map[string]string{rag.MetaSource: "book.pdf#page=2", rag.MetaPage: "2"}},
		{Content: "  ", Metadata: map[string]string{rag.MetaSource: "book.pdf#page=3"}},
	}

	chunks := s.SplitDocuments(docs)
	require.Greater(t, len(chunks), 2)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "Tiny.", last.Content)
	assert.Equal(t, "book.pdf#page=2", last.Source())
	for _, c := range chunks[:len(chunks)-1] {
		assert.Equal(t, "book.pdf#page=1", c.Source())
	}

	chunks[0].Metadata[rag.MetaSource] = "mutated"
	assert.Equal(t, "book.pdf#page=1", docs[0].Metadata[rag.MetaSource])
	assert.Equal(t, "book.pdf#page=1", chunks[1].Source())
}
