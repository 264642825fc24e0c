package weaviate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"voicerag/internal/rag"
	"voicerag/internal/vector"
)

// Store keeps the run's chunk index in a single Weaviate class.
type Store struct {
	client    *weaviate.Client
	schema    vector.SchemaClient
	className string
}

func NewStore(client *weaviate.Client, className string) *Store {
	return &Store{
		client:    client,
		schema:    vector.NewClassSchema(client, className),
		className: className,
	}
}

// EnsureSchema verifies the chunk class at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, s.schema)
}

// Reset drops every previously indexed chunk.
func (s *Store) Reset(ctx context.Context) error {
	return vector.ResetSchema(ctx, s.schema)
}

func (s *Store) Add(ctx context.Context, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	objs := make([]*models.Object, 0, len(chunks))
	for _, c := range chunks {
		objs = append(objs, &models.Object{
			Class: s.className,
			Properties: map[string]interface{}{
				"content": c.Content,
				"source":  c.Source(),
				"page":    c.Metadata[rag.MetaPage],
				"chunkId": c.ID,
			},
			Vector: models.C11yVector(c.Vector),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return err
	}

	var failures []string
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil {
			for _, e := range r.Result.Errors.Error {
				failures = append(failures, e.Message)
			}
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("batch insert failed for %d objects: %s", len(failures), strings.Join(failures, "; "))
	}

	slog.DebugContext(ctx, "chunks stored", "class", s.className, "count", len(objs))
	return nil
}

// Persist is a no-op; Weaviate writes objects durably on insert.
func (s *Store) Persist(ctx context.Context) error {
	return nil
}

func (s *Store) Search(ctx context.Context, vec []float32, k int) ([]rag.RetrievedChunk, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "page"},
		{Name: "chunkId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var results []rag.RetrievedChunk
	data, _ := res.Data["Get"].(map[string]interface{})
	rows, _ := data[s.className].([]interface{})
	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		rc := rag.RetrievedChunk{Chunk: rag.Chunk{Metadata: map[string]string{}}}
		if v, ok := props["content"].(string); ok {
			rc.Content = v
		}
		if v, ok := props["source"].(string); ok {
			rc.Metadata[rag.MetaSource] = v
		}
		if v, ok := props["page"].(string); ok && v != "" {
			rc.Metadata[rag.MetaPage] = v
		}
		if v, ok := props["chunkId"].(string); ok {
			rc.ID = v
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				rc.Score = float32(1 - d)
			}
		}
		results = append(results, rc)
	}
	return results, nil
}
