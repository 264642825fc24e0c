package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voicerag/internal/rag"
)

type Verdict int

const (
	VerdictSufficient Verdict = iota
	VerdictInsufficient
	// VerdictUnavailable means the judgment call failed.
	VerdictUnavailable
)

func (v Verdict) String() string {
	switch v {
	case VerdictSufficient:
		return "sufficient"
	case VerdictInsufficient:
		return "insufficient"
	default:
		return "unavailable"
	}
}

type Evaluation struct {
	Verdict  Verdict
	Judgment string
	Err      error
}

// Insufficient reports whether the retrieved answer should be replaced.
// A failed evaluation counts as insufficient.
func (e Evaluation) Insufficient() bool {
	return e.Verdict != VerdictSufficient
}

type Evaluator struct {
	generator Generator
}

func NewEvaluator(g Generator) *Evaluator {
	return &Evaluator{generator: g}
}

func evaluationPrompt(question, answer string) string {
	return fmt.Sprintf("Question: %s\n\nRAG Answer: %s\n\n"+
		"Is the above answer helpful, relevant, and sufficient to answer the question accurately?\n"+
		"Only reply with one word: Yes or No.\n", question, answer)
}

func (e *Evaluator) Evaluate(ctx context.Context, question, answer string) Evaluation {
	judgment, err := e.generator.Generate(ctx, evaluationPrompt(question, answer))
	if err != nil {
		slog.WarnContext(ctx, "answer evaluation failed, treating as insufficient", "error", err)
		return Evaluation{Verdict: VerdictUnavailable, Err: fmt.Errorf("%w: %w", rag.ErrEvaluation, err)}
	}

	normalized := strings.ToLower(strings.TrimSpace(judgment))
	verdict := VerdictSufficient
	if strings.HasPrefix(normalized, "n") {
		verdict = VerdictInsufficient
	}

	slog.InfoContext(ctx, "answer evaluated", "verdict", verdict.String(), "judgment", normalized)
	return Evaluation{Verdict: verdict, Judgment: normalized}
}
