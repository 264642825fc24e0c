package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voicerag/internal/middleware"
	"voicerag/internal/rag"
)

const unknownSource = "Unknown source"

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]rag.RetrievedChunk, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]int, error)
}

// Answerer answers a query from the top-K chunks of an index in a single
// generation call.
type Answerer struct {
	generator Generator
	reranker  Reranker
	logger    *QueryLogger
	topK      int
}

// NewAnswerer builds an answerer. reranker and logger are optional.
func NewAnswerer(g Generator, r Reranker, l *QueryLogger, topK int) *Answerer {
	return &Answerer{generator: g, reranker: r, logger: l, topK: topK}
}

// Answer returns the model's answer and the source of every retrieved chunk in
// rank order, duplicates included.
func (a *Answerer) Answer(ctx context.Context, query string, idx Searcher) (rag.AnswerResult, error) {
	start := time.Now()

	chunks, err := idx.Search(ctx, query, a.topK)
	if err != nil {
		return rag.AnswerResult{}, fmt.Errorf("%w: search: %w", rag.ErrRetrieval, err)
	}

	if a.reranker != nil && len(chunks) > 0 {
		chunks, err = a.rerank(ctx, query, chunks)
		if err != nil {
			return rag.AnswerResult{}, fmt.Errorf("%w: rerank: %w", rag.ErrRetrieval, err)
		}
	}

	raw, err := a.generator.Generate(ctx, BuildPrompt(query, chunks))
	if err != nil {
		return rag.AnswerResult{}, fmt.Errorf("%w: generate: %w", rag.ErrRetrieval, err)
	}

	sources := make([]string, len(chunks))
	for i, c := range chunks {
		sources[i] = c.Source()
		if sources[i] == "" {
			sources[i] = unknownSource
		}
	}

	result := rag.AnswerResult{Answer: ParseAnswer(raw), Sources: sources}

	if a.logger != nil {
		a.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(chunks),
			Sources:       sources,
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
			Variant:       middleware.GetVariant(ctx),
		})
	}
	slog.InfoContext(ctx, "retrieval answer generated", "chunks", len(chunks), "duration", time.Since(start))
	return result, nil
}

func (a *Answerer) rerank(ctx context.Context, query string, chunks []rag.RetrievedChunk) ([]rag.RetrievedChunk, error) {
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	indices, err := a.reranker.Rerank(ctx, query, contents)
	if err != nil {
		return nil, err
	}

	reranked := make([]rag.RetrievedChunk, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(chunks) {
			reranked = append(reranked, chunks[idx])
		}
	}
	return reranked, nil
}
