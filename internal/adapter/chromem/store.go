package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"

	"voicerag/internal/rag"
)

const collectionName = "corpus"

var errNoEmbeddingFunc = errors.New("embeddings must be supplied by the caller")

// Store holds the run's chunk index in memory and exports it to a single file.
type Store struct {
	path       string
	db         *chromem.DB
	collection *chromem.Collection
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Reset discards the in-memory index and starts an empty collection.
func (s *Store) Reset(ctx context.Context) error {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, noEmbedding)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.db = db
	s.collection = col
	return nil
}

func (s *Store) Add(ctx context.Context, chunks []rag.Chunk) error {
	if s.collection == nil {
		return errors.New("index not initialised")
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Metadata:  c.Metadata,
			Embedding: c.Vector,
			Content:   c.Content,
		})
	}
	return s.collection.AddDocuments(ctx, docs, runtime.NumCPU())
}

// Persist writes the collection to the store's path, replacing any earlier export.
func (s *Store) Persist(ctx context.Context) error {
	if s.db == nil {
		return errors.New("index not initialised")
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove previous index: %w", err)
	}
	return s.db.ExportToFile(s.path, false, "", collectionName)
}

// Search returns up to k chunks by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]rag.RetrievedChunk, error) {
	if s.collection == nil {
		return nil, errors.New("index not initialised")
	}
	n := min(k, s.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	res, err := s.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]rag.RetrievedChunk, 0, len(res))
	for _, r := range res {
		out = append(out, rag.RetrievedChunk{
			Chunk: rag.Chunk{ID: r.ID, Content: r.Content, Metadata: r.Metadata},
			Score: r.Similarity,
		})
	}
	return out, nil
}
