package retrieval

import (
	"regexp"
	"strings"

	"voicerag/internal/rag"
)

var (
	sourcesMarker = regexp.MustCompile(`(?i)SOURCES?:`)
	answerPrefix  = regexp.MustCompile(`(?i)^\s*FINAL ANSWER:\s*`)
)

// BuildPrompt stuffs every retrieved chunk into a single answering prompt.
func BuildPrompt(question string, chunks []rag.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Given the following extracted parts of a long document and a question, create a final answer with references (\"SOURCES\").\n")
	b.WriteString("If you don't know the answer, just say that you don't know. Don't try to make up an answer.\n")
	b.WriteString("ALWAYS return a \"SOURCES\" part in your answer.\n\n")
	b.WriteString("QUESTION: ")
	b.WriteString(question)
	b.WriteString("\n=========\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Content: ")
		b.WriteString(c.Content)
		b.WriteString("\nSource: ")
		src := c.Source()
		if src == "" {
			src = unknownSource
		}
		b.WriteString(src)
	}
	b.WriteString("\n=========\nFINAL ANSWER:")
	return b.String()
}

// ParseAnswer keeps the text before the SOURCES section.
func ParseAnswer(raw string) string {
	answer := raw
	if loc := sourcesMarker.FindStringIndex(raw); loc != nil {
		answer = raw[:loc[0]]
	}
	answer = answerPrefix.ReplaceAllString(answer, "")
	return strings.TrimSpace(answer)
}
