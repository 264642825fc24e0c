package vector

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient is the schema surface of a single chunk class.
type SchemaClient interface {
	Name() string
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	PropertyNames(ctx context.Context) (map[string]bool, error)
	AddProperty(ctx context.Context, property *models.Property) error
	Drop(ctx context.Context) error
}

func chunkProperties() []*models.Property {
	return []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "source", DataType: []string{"text"}},
		{Name: "page", DataType: []string{"text"}},
		{Name: "chunkId", DataType: []string{"text"}},
	}
}

func chunkClass(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "A chunk of a corpus document",
		Vectorizer:  "none",
		Properties:  chunkProperties(),
	}
}

// EnsureSchema creates the chunk class if needed and adds any missing properties.
func EnsureSchema(ctx context.Context, s SchemaClient) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", s.Name(), err)
	}
	if !exists {
		return s.Create(ctx, chunkClass(s.Name()))
	}

	existing, err := s.PropertyNames(ctx)
	if err != nil {
		return fmt.Errorf("get class %s: %w", s.Name(), err)
	}
	for _, p := range chunkProperties() {
		if existing[p.Name] {
			continue
		}
		if err := s.AddProperty(ctx, p); err != nil {
			return fmt.Errorf("add property %s: %w", p.Name, err)
		}
	}
	return nil
}

// ResetSchema drops the chunk class with all its objects and recreates it empty.
func ResetSchema(ctx context.Context, s SchemaClient) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", s.Name(), err)
	}
	if exists {
		if err := s.Drop(ctx); err != nil {
			return fmt.Errorf("drop class %s: %w", s.Name(), err)
		}
	}
	return s.Create(ctx, chunkClass(s.Name()))
}
