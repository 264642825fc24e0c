package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "voicerag/internal/adapter/weaviate"
	"voicerag/internal/rag"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) *weaviate.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	client, err := weaviate.NewClient(weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"})
	require.NoError(t, err)
	return client
}

func TestStore_Add(t *testing.T) {
	client := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Objects []struct {
				Class      string                 `json:"class"`
				Properties map[string]interface{} `json:"properties"`
				Vector     []float32              `json:"vector"`
			} `json:"objects"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Objects, 2)
		assert.Equal(t, "CorpusChunk", body.Objects[0].Class)
		assert.Equal(t, "book.pdf#page=1", body.Objects[0].Properties["source"])
		assert.Equal(t, "chunk-00001", body.Objects[1].Properties["chunkId"])
		assert.Equal(t, []float32{0.3, 0.4}, body.Objects[1].Vector)

		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"class": "CorpusChunk", "result": map[string]interface{}{}},
			{"class": "CorpusChunk", "result": map[string]interface{}{}},
		})
	})

	store := adapter.NewStore(client, "CorpusChunk")
	err := store.Add(context.Background(), []rag.Chunk{
		{ID: "chunk-00000", Content: "a", Metadata: map[string]string{rag.MetaSource: "book.pdf#page=1", rag.MetaPage: "1"}, Vector: []float32{0.1, 0.2}},
		{ID: "chunk-00001", Content: "b", Metadata: map[string]string{rag.MetaSource: "book.pdf#page=2", rag.MetaPage: "2"}, Vector: []float32{0.3, 0.4}},
	})
	assert.NoError(t, err)
}

func TestStore_AddReportsObjectErrors(t *testing.T) {
	client := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"class": "CorpusChunk", "result": map[string]interface{}{
				"errors": map[string]interface{}{"error": []map[string]interface{}{{"message": "vector dimension mismatch"}}},
			}},
		})
	})

	store := adapter.NewStore(client, "CorpusChunk")
	err := store.Add(context.Background(), []rag.Chunk{{ID: "c", Content: "a", Metadata: map[string]string{}, Vector: []float32{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector dimension mismatch")
}

func TestStore_AddEmpty(t *testing.T) {
	client := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	assert.NoError(t, adapter.NewStore(client, "CorpusChunk").Add(context.Background(), nil))
}

func TestStore_Reset(t *testing.T) {
	var calls []string
	client := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]interface{}{"class": "CorpusChunk"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, adapter.NewStore(client, "CorpusChunk").Reset(context.Background()))
	assert.Equal(t, []string{
		"GET /v1/schema/CorpusChunk",
		"DELETE /v1/schema/CorpusChunk",
		"POST /v1/schema",
	}, calls)
}

func TestStore_Search(t *testing.T) {
	client := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		query, _ := body["query"].(string)
		assert.Contains(t, query, "nearVector")
		assert.Contains(t, query, "limit: 2")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"CorpusChunk": []interface{}{
						map[string]interface{}{
							"content": "first", "source": "https://example.com", "page": "", "chunkId": "chunk-00003",
							"_additional": map[string]interface{}{"distance": 0.25},
						},
						map[string]interface{}{
							"content": "second", "source": "https://example.com/about", "chunkId": "chunk-00007",
							"_additional": map[string]interface{}{"distance": 0.5},
						},
					},
				},
			},
		})
	})

	results, err := adapter.NewStore(client, "CorpusChunk").Search(context.Background(), []float32{0.1, 0.2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Content)
	assert.Equal(t, "https://example.com", results[0].Source())
	assert.Equal(t, "chunk-00003", results[0].ID)
	assert.InDelta(t, 0.75, results[0].Score, 1e-6)
	assert.NotContains(t, results[0].Metadata, rag.MetaPage)
	assert.Equal(t, "https://example.com/about", results[1].Source())
}

func TestStore_SearchGraphQLError(t *testing.T) {
	client := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": "class not found"}},
		})
	})

	_, err := adapter.NewStore(client, "CorpusChunk").Search(context.Background(), []float32{0.1}, 10)
	assert.ErrorContains(t, err, "class not found")
}
