package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPineconeStore(t *testing.T, handler http.HandlerFunc) VectorStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewPineconeVectorStore(PineconeOptions{
		APIKey:          "test-key",
		IndexName:       "test-index",
		IndexHost:       server.URL,
		ControlPlaneURL: server.URL,
		Dimension:       4,
		DeleteBatchSize: 2,
	})
}

func TestPineconeVectorStore_NotConfigured(t *testing.T) {
	store := NewPineconeVectorStore(PineconeOptions{})

	assert.False(t, store.Ready())

	_, err := store.DescribeIndex(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotConfigured(err))
}

func TestPineconeVectorStore_DescribeIndex(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/describe_index_stats", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("Api-Key"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"dimension":        1024,
			"totalVectorCount": 42,
			"namespaces": map[string]interface{}{
				"": map[string]interface{}{"vectorCount": 42},
			},
		})
	})

	stats, err := store.DescribeIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1024, stats.Dimension)
	assert.Equal(t, 42, stats.TotalVectorCount)
	assert.Equal(t, 42, stats.Namespaces[""])
}

func TestPineconeVectorStore_Query(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["topK"])
		assert.Equal(t, true, body["includeMetadata"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"matches": []map[string]interface{}{
				{
					"id":    "doc-1-chunk-0",
					"score": 0.91,
					"metadata": map[string]interface{}{
						"pageContent": "hello world",
						"source":      "doc.txt",
					},
				},
				{"id": "doc-1-chunk-1", "score": 0.42},
			},
		})
	})

	matches, err := store.Query(context.Background(), QueryRequest{
		Vector:          []float32{1, 0, 0, 0},
		TopK:            3,
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-1-chunk-0", matches[0].ID)
	assert.Equal(t, "hello world", matches[0].Content)
	assert.Equal(t, 0.91, matches[0].Score)
	// 无pageContent时内容为空
	assert.Empty(t, matches[1].Content)
}

func TestPineconeVectorStore_Query_EmptyVector(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty vector")
	})

	matches, err := store.Query(context.Background(), QueryRequest{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPineconeVectorStore_Upsert(t *testing.T) {
	var received int
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vectors/upsert", r.URL.Path)

		var body struct {
			Vectors []map[string]interface{} `json:"vectors"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received = len(body.Vectors)
		json.NewEncoder(w).Encode(map[string]int{"upsertedCount": received})
	})

	err := store.Upsert(context.Background(), []StoredVector{
		{ID: "a-chunk-0", Values: []float32{1, 2, 3, 4}},
		{ID: "a-chunk-1", Values: []float32{5, 6, 7, 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, received)
}

func TestPineconeVectorStore_DeleteByIDPrefix(t *testing.T) {
	var deleteCalls int
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/describe_index_stats":
			json.NewEncoder(w).Encode(map[string]interface{}{"dimension": 4, "totalVectorCount": 5})
		case "/query":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"matches": []map[string]interface{}{
					{"id": "file-1-chunk-0", "score": 0},
					{"id": "file-1-chunk-1", "score": 0},
					{"id": "file-1-chunk-2", "score": 0},
					// 前缀不匹配的结果被过滤掉
					{"id": "other-file-chunk-0", "score": 0},
				},
			})
		case "/vectors/delete":
			deleteCalls++
			var body struct {
				IDs []string `json:"ids"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.LessOrEqual(t, len(body.IDs), 2)
			w.Write([]byte("{}"))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	deleted, err := store.DeleteByIDPrefix(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	// 3个ID按批次2删除：两次请求
	assert.Equal(t, 2, deleteCalls)
}

func TestPineconeVectorStore_DeleteByIDPrefix_NotFound(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/describe_index_stats":
			json.NewEncoder(w).Encode(map[string]interface{}{"dimension": 4, "totalVectorCount": 5})
		case "/query":
			json.NewEncoder(w).Encode(map[string]interface{}{"matches": []interface{}{}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	_, err := store.DeleteByIDPrefix(context.Background(), "missing-file")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPineconeVectorStore_ListIndexes(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/indexes", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"indexes": []map[string]string{
				{"name": "custom-gpt-knowledge"},
				{"name": "test-index"},
			},
		})
	})

	names, err := store.ListIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"custom-gpt-knowledge", "test-index"}, names)
}

func TestPineconeVectorStore_EnsureIndex_Creates(t *testing.T) {
	var created bool
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/indexes", r.URL.Path)
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]interface{}{"indexes": []interface{}{}})
			return
		}

		created = true
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-index", body["name"])
		assert.Equal(t, float64(4), body["dimension"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("{}"))
	})

	ensurer, ok := store.(IndexEnsurer)
	require.True(t, ok)
	require.NoError(t, ensurer.EnsureIndex(context.Background()))
	assert.True(t, created)
}

func TestPineconeVectorStore_EnsureIndex_AlreadyExists(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"indexes": []map[string]string{{"name": "test-index"}},
		})
	})

	require.NoError(t, store.(IndexEnsurer).EnsureIndex(context.Background()))
}

func TestPineconeVectorStore_UpstreamError(t *testing.T) {
	store := newTestPineconeStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
	})

	_, err := store.DescribeIndex(context.Background())
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodeUpstreamService, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPCode)
}
