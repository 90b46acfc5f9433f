package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address         string
	Username        string
	Password        string
	Collection      string
	VectorSize      int
	Distance        string
	Database        string
	UseTLS          bool
	DeleteBatchSize int
	Timeout         time.Duration
}

type milvusVectorStore struct {
	milvusClient    client.Client
	collection      string
	vectorSize      int
	distance        entity.MetricType
	deleteBatchSize int
	loaded          bool
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "gpt_knowledge"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1024
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.DeleteBatchSize == 0 {
		opts.DeleteBatchSize = 100
	}

	// 创建Milvus客户端
	milvusClient, err := client.NewClient(
		context.Background(),
		client.Config{
			Address:       opts.Address,
			DBName:        opts.Database,
			Username:      opts.Username,
			Password:      opts.Password,
			EnableTLSAuth: opts.UseTLS,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient:    milvusClient,
		collection:      opts.Collection,
		vectorSize:      opts.VectorSize,
		distance:        formatMilvusDistance(opts.Distance),
		deleteBatchSize: opts.DeleteBatchSize,
	}, nil
}

func formatMilvusDistance(value string) entity.MetricType {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return entity.IP
	case "L2", "EUCLIDEAN":
		return entity.L2
	default:
		return entity.COSINE
	}
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return apperrors.NewUpstreamError("milvus", err)
	}

	if !hasCollection {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Chat knowledge base vectors",
			Fields: []*entity.Field{
				{
					Name:       "id",
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					TypeParams: map[string]string{
						"max_length": "512",
					},
				},
				{
					Name:     "content",
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": "65535",
					},
				},
				{
					Name:     "metadata",
					DataType: entity.FieldTypeJSON,
				},
				{
					Name:     "vector",
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", s.vectorSize),
					},
				},
			},
		}

		if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return apperrors.NewUpstreamError("milvus", err)
		}

		// 创建索引 - HNSW失败时回退到IVF_FLAT
		var index entity.Index
		index, indexErr := entity.NewIndexHNSW(s.distance, 8, 64)
		if indexErr != nil {
			index, indexErr = entity.NewIndexIvfFlat(s.distance, 128)
			if indexErr != nil {
				return apperrors.NewUpstreamError("milvus", indexErr)
			}
		}
		if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
			return apperrors.NewUpstreamError("milvus", err)
		}
	}

	if !s.loaded {
		if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
			return apperrors.NewUpstreamError("milvus", err)
		}
		s.loaded = true
	}

	return nil
}

func (s *milvusVectorStore) DescribeIndex(ctx context.Context) (IndexStats, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return IndexStats{}, err
	}

	stats, err := s.milvusClient.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return IndexStats{}, apperrors.NewUpstreamError("milvus", err)
	}

	total := 0
	if raw, ok := stats["row_count"]; ok {
		total, _ = strconv.Atoi(raw)
	}

	return IndexStats{
		Dimension:        s.vectorSize,
		TotalVectorCount: total,
		Namespaces:       map[string]int{"": total},
	}, nil
}

func (s *milvusVectorStore) Query(ctx context.Context, req QueryRequest) ([]QueryMatch, error) {
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if req.TopK == 0 {
		req.TopK = 10
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	queryVector := entity.FloatVector(AdjustDimension(req.Vector, s.vectorSize))

	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		buildMilvusFilter(req.Filter),
		[]string{"content", "metadata"},
		[]entity.Vector{queryVector},
		"vector",
		s.distance,
		req.TopK,
		sp,
	)
	if err != nil {
		return nil, apperrors.NewUpstreamError("milvus", err)
	}
	if len(searchResults) == 0 {
		return []QueryMatch{}, nil
	}

	result := searchResults[0]
	if result.Err != nil {
		return nil, apperrors.NewUpstreamError("milvus", result.Err)
	}

	var ids []string
	if idCol, ok := result.IDs.(*entity.ColumnVarChar); ok {
		ids = idCol.Data()
	}

	var contents []string
	var metadataRaw [][]byte
	for _, field := range result.Fields {
		switch field.Name() {
		case "content":
			if col, ok := field.(*entity.ColumnVarChar); ok {
				contents = col.Data()
			}
		case "metadata":
			if col, ok := field.(*entity.ColumnJSONBytes); ok {
				metadataRaw = col.Data()
			}
		}
	}

	matches := make([]QueryMatch, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		match := QueryMatch{Metadata: map[string]interface{}{}}
		if i < len(ids) {
			match.ID = ids[i]
		}
		if i < len(contents) {
			match.Content = contents[i]
		}
		if i < len(metadataRaw) {
			json.Unmarshal(metadataRaw[i], &match.Metadata)
		}
		if i < len(result.Scores) {
			match.Score = float64(result.Scores[i])
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// buildMilvusFilter 将元数据过滤条件翻译为Milvus表达式，仅支持相等匹配
func buildMilvusFilter(filter map[string]interface{}) string {
	if len(filter) == 0 {
		return ""
	}

	var parts []string
	for key, raw := range filter {
		cond, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if val, ok := cond["$eq"]; ok {
			parts = append(parts, fmt.Sprintf(`metadata["%s"] == %s`, key, milvusLiteral(val)))
		}
	}

	return strings.Join(parts, " and ")
}

func milvusLiteral(val interface{}) string {
	switch v := val.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return strconv.Quote(fmt.Sprintf("%v", v))
	}
}

func (s *milvusVectorStore) Upsert(ctx context.Context, vectors []StoredVector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	ids := make([]string, 0, len(vectors))
	contents := make([]string, 0, len(vectors))
	metadatas := make([][]byte, 0, len(vectors))
	values := make([][]float32, 0, len(vectors))

	for _, v := range vectors {
		content := ""
		if raw, ok := v.Metadata["pageContent"].(string); ok {
			content = raw
		}
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", v.ID, err)
		}

		ids = append(ids, v.ID)
		contents = append(contents, content)
		metadatas = append(metadatas, meta)
		values = append(values, AdjustDimension(v.Values, s.vectorSize))
	}

	_, err := s.milvusClient.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnJSONBytes("metadata", metadatas),
		entity.NewColumnFloatVector("vector", s.vectorSize, values),
	)
	if err != nil {
		return apperrors.NewUpstreamError("milvus", err)
	}

	return nil
}

func (s *milvusVectorStore) DeleteByIDPrefix(ctx context.Context, prefix string) (int, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	expr := fmt.Sprintf(`id like "%s%%"`, prefix)
	resultSet, err := s.milvusClient.Query(ctx, s.collection, nil, expr, []string{"id"})
	if err != nil {
		return 0, apperrors.NewUpstreamError("milvus", err)
	}

	var ids []string
	for _, col := range resultSet {
		if col.Name() == "id" {
			if idCol, ok := col.(*entity.ColumnVarChar); ok {
				ids = idCol.Data()
			}
		}
	}
	if len(ids) == 0 {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("vectors with prefix %q", prefix))
	}

	for start := 0; start < len(ids); start += s.deleteBatchSize {
		end := start + s.deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		quoted := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			quoted = append(quoted, strconv.Quote(id))
		}
		deleteExpr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))
		if err := s.milvusClient.Delete(ctx, s.collection, "", deleteExpr); err != nil {
			return 0, apperrors.NewUpstreamError("milvus", err)
		}
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		// 刷新失败不影响删除结果
		return len(ids), nil
	}

	return len(ids), nil
}

func (s *milvusVectorStore) ListIndexes(ctx context.Context) ([]string, error) {
	collections, err := s.milvusClient.ListCollections(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError("milvus", err)
	}

	names := make([]string, 0, len(collections))
	for _, coll := range collections {
		names = append(names, coll.Name)
	}

	return names, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
