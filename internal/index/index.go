package index

import (
	"context"
	"fmt"
	"log/slog"

	"voicerag/internal/rag"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is a vector index rebuilt from scratch for every run.
type Store interface {
	Reset(ctx context.Context) error
	Add(ctx context.Context, chunks []rag.Chunk) error
	Persist(ctx context.Context) error
	Search(ctx context.Context, vector []float32, k int) ([]rag.RetrievedChunk, error)
}

type Splitter interface {
	SplitDocuments(docs []rag.Document) []rag.Chunk
}

type Indexer struct {
	splitter Splitter
	embedder Embedder
	store    Store
}

func NewIndexer(splitter Splitter, embedder Embedder, store Store) *Indexer {
	return &Indexer{splitter: splitter, embedder: embedder, store: store}
}

// Build chunks docs, embeds every chunk and replaces the persisted index.
// Any failure leaves no usable index.
func (ix *Indexer) Build(ctx context.Context, docs []rag.Document) (*Index, error) {
	chunks := ix.splitter.SplitDocuments(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced from %d documents", rag.ErrIndexing, len(docs))
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("chunk-%05d", i)
		texts[i] = chunks[i].Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed chunks: %w", rag.ErrIndexing, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", rag.ErrIndexing, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	if err := ix.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("%w: reset store: %w", rag.ErrIndexing, err)
	}
	if err := ix.store.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("%w: add chunks: %w", rag.ErrIndexing, err)
	}
	if err := ix.store.Persist(ctx); err != nil {
		return nil, fmt.Errorf("%w: persist: %w", rag.ErrIndexing, err)
	}

	slog.InfoContext(ctx, "index built", "documents", len(docs), "chunks", len(chunks))
	return &Index{store: ix.store, embedder: ix.embedder, size: len(chunks)}, nil
}

// Index answers similarity queries against a built store.
type Index struct {
	store    Store
	embedder Embedder
	size     int
}

func (i *Index) Size() int {
	return i.size
}

// Search returns the k chunks most similar to query, best first.
func (i *Index) Search(ctx context.Context, query string, k int) ([]rag.RetrievedChunk, error) {
	vec, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return i.store.Search(ctx, vec, min(k, i.size))
}
