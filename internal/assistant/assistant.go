// Package assistant holds the language-model steps that surround retrieval:
// transcript refinement, answer evaluation and the context-free fallback.
package assistant

import "context"

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
