package assistant

import (
	"context"
	"fmt"
	"strings"

	"voicerag/internal/rag"
)

// Fallback answers a query directly, without retrieved context.
type Fallback struct {
	generator Generator
}

func NewFallback(g Generator) *Fallback {
	return &Fallback{generator: g}
}

func (f *Fallback) Answer(ctx context.Context, query string) (string, error) {
	out, err := f.generator.Generate(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: %w", rag.ErrFallback, err)
	}
	return strings.TrimSpace(out), nil
}
