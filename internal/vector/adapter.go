package vector

import (
	"context"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// ClassSchema runs schema calls against one Weaviate class.
type ClassSchema struct {
	client *weaviate.Client
	class  string
}

func NewClassSchema(client *weaviate.Client, class string) *ClassSchema {
	return &ClassSchema{client: client, class: class}
}

func (s *ClassSchema) Name() string {
	return s.class
}

func (s *ClassSchema) Exists(ctx context.Context) (bool, error) {
	return s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
}

func (s *ClassSchema) Create(ctx context.Context, class *models.Class) error {
	return s.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

// PropertyNames lists the properties the class currently has.
func (s *ClassSchema) PropertyNames(ctx context.Context) (map[string]bool, error) {
	class, err := s.client.Schema().ClassGetter().WithClassName(s.class).Do(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(class.Properties))
	for _, p := range class.Properties {
		names[p.Name] = true
	}
	return names, nil
}

func (s *ClassSchema) AddProperty(ctx context.Context, property *models.Property) error {
	return s.client.Schema().PropertyCreator().WithClassName(s.class).WithProperty(property).Do(ctx)
}

// Drop deletes the class and every object in it.
func (s *ClassSchema) Drop(ctx context.Context) error {
	return s.client.Schema().ClassDeleter().WithClassName(s.class).Do(ctx)
}
