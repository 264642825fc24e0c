package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voicerag/internal/rag"
)

type Refinement struct {
	Query string
	Err   error
}

// Refined reports whether Query came from the model rather than the transcript.
func (r Refinement) Refined() bool {
	return r.Err == nil
}

type Refiner struct {
	generator Generator
}

func NewRefiner(g Generator) *Refiner {
	return &Refiner{generator: g}
}

func refinementPrompt(transcript string) string {
	return fmt.Sprintf(`You are an assistant helping clean up possibly imperfect speech-to-text transcription.
This was transcribed from audio: "%s"
Fix transcription errors, clean up names, and clarify what's being asked so it aligns with known content in a knowledge base.
Output a single improved version of the user's intended query:
`, transcript)
}

// Refine rewrites transcript into a cleaner query. On failure the transcript
// is returned unchanged.
func (r *Refiner) Refine(ctx context.Context, transcript string) Refinement {
	out, err := r.generator.Generate(ctx, refinementPrompt(transcript))
	if err == nil && strings.TrimSpace(out) == "" {
		err = fmt.Errorf("empty refinement")
	}
	if err != nil {
		slog.WarnContext(ctx, "query refinement failed, using transcript", "error", err)
		return Refinement{Query: transcript, Err: fmt.Errorf("%w: %w", rag.ErrRefinement, err)}
	}

	query := strings.TrimSpace(out)
	slog.InfoContext(ctx, "query refined", "transcript", transcript, "query", query)
	return Refinement{Query: query}
}
