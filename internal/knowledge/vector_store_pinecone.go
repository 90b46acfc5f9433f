package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
)

const defaultControlPlane = "https://api.pinecone.io"

// PineconeOptions Pinecone客户端配置
type PineconeOptions struct {
	APIKey          string
	IndexName       string
	IndexHost       string
	Environment     string
	Dimension       int
	Metric          string
	ControlPlaneURL string
	DeleteBatchSize int
	Timeout         time.Duration
}

type pineconeVectorStore struct {
	client          *http.Client
	apiKey          string
	indexName       string
	environment     string
	dimension       int
	metric          string
	controlPlane    string
	deleteBatchSize int

	hostMu    sync.Mutex
	indexHost string
}

// NewPineconeVectorStore 创建Pinecone向量存储。
// 缺少凭证不在此处报错，首次调用时返回配置错误。
func NewPineconeVectorStore(opts PineconeOptions) VectorStore {
	if opts.IndexName == "" {
		opts.IndexName = "custom-gpt-knowledge"
	}
	if opts.Environment == "" {
		opts.Environment = "us-east1-gcp"
	}
	if opts.Dimension == 0 {
		opts.Dimension = 1024
	}
	if opts.Metric == "" {
		opts.Metric = "cosine"
	}
	if opts.ControlPlaneURL == "" {
		opts.ControlPlaneURL = defaultControlPlane
	}
	if opts.DeleteBatchSize == 0 {
		opts.DeleteBatchSize = 100
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &pineconeVectorStore{
		client:          &http.Client{Timeout: timeout},
		apiKey:          strings.TrimSpace(opts.APIKey),
		indexName:       opts.IndexName,
		environment:     opts.Environment,
		dimension:       opts.Dimension,
		metric:          opts.Metric,
		controlPlane:    strings.TrimSuffix(opts.ControlPlaneURL, "/"),
		deleteBatchSize: opts.DeleteBatchSize,
		indexHost:       normalizeHost(opts.IndexHost),
	}
}

func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return host
}

func (s *pineconeVectorStore) checkCredential() error {
	if s.apiKey == "" {
		return apperrors.NewConfigurationError("Pinecone API key is not configured")
	}
	return nil
}

// resolveHost 查询并缓存索引的数据面地址
func (s *pineconeVectorStore) resolveHost(ctx context.Context) (string, error) {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()

	if s.indexHost != "" {
		return s.indexHost, nil
	}

	resp, err := s.doRequest(ctx, http.MethodGet, s.controlPlane+"/indexes/"+s.indexName, nil)
	if err != nil {
		return "", apperrors.NewUpstreamError("pinecone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("pinecone index %q", s.indexName))
	}
	if resp.StatusCode >= 300 {
		return "", upstreamFromResponse("pinecone", resp)
	}

	var desc struct {
		Host string `json:"host"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return "", apperrors.NewUpstreamError("pinecone", err)
	}
	if desc.Host == "" {
		return "", apperrors.NewUpstreamError("pinecone", fmt.Errorf("index %s has no host", s.indexName))
	}

	s.indexHost = normalizeHost(desc.Host)
	return s.indexHost, nil
}

func (s *pineconeVectorStore) DescribeIndex(ctx context.Context) (IndexStats, error) {
	if err := s.checkCredential(); err != nil {
		return IndexStats{}, err
	}
	host, err := s.resolveHost(ctx)
	if err != nil {
		return IndexStats{}, err
	}

	resp, err := s.doRequest(ctx, http.MethodPost, host+"/describe_index_stats", map[string]interface{}{})
	if err != nil {
		return IndexStats{}, apperrors.NewUpstreamError("pinecone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return IndexStats{}, upstreamFromResponse("pinecone", resp)
	}

	var stats struct {
		Dimension        int `json:"dimension"`
		TotalVectorCount int `json:"totalVectorCount"`
		Namespaces       map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return IndexStats{}, apperrors.NewUpstreamError("pinecone", err)
	}

	result := IndexStats{
		Dimension:        stats.Dimension,
		TotalVectorCount: stats.TotalVectorCount,
		Namespaces:       make(map[string]int, len(stats.Namespaces)),
	}
	if result.Dimension == 0 {
		result.Dimension = s.dimension
	}
	for name, ns := range stats.Namespaces {
		result.Namespaces[name] = ns.VectorCount
	}

	return result, nil
}

func (s *pineconeVectorStore) Query(ctx context.Context, req QueryRequest) ([]QueryMatch, error) {
	if err := s.checkCredential(); err != nil {
		return nil, err
	}
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if req.TopK == 0 {
		req.TopK = 10
	}
	host, err := s.resolveHost(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"vector":          req.Vector,
		"topK":            req.TopK,
		"includeMetadata": req.IncludeMetadata,
	}
	if len(req.Filter) > 0 {
		body["filter"] = req.Filter
	}

	resp, err := s.doRequest(ctx, http.MethodPost, host+"/query", body)
	if err != nil {
		return nil, apperrors.NewUpstreamError("pinecone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, upstreamFromResponse("pinecone", resp)
	}

	var queryResp struct {
		Matches []struct {
			ID       string                 `json:"id"`
			Score    float64                `json:"score"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, apperrors.NewUpstreamError("pinecone", err)
	}

	matches := make([]QueryMatch, 0, len(queryResp.Matches))
	for _, m := range queryResp.Matches {
		content := ""
		if val, ok := m.Metadata["pageContent"].(string); ok {
			content = val
		}
		matches = append(matches, QueryMatch{
			ID:       m.ID,
			Content:  content,
			Metadata: m.Metadata,
			Score:    m.Score,
		})
	}

	return matches, nil
}

func (s *pineconeVectorStore) Upsert(ctx context.Context, vectors []StoredVector) error {
	if err := s.checkCredential(); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	host, err := s.resolveHost(ctx)
	if err != nil {
		return err
	}

	payload := make([]map[string]interface{}, 0, len(vectors))
	for _, v := range vectors {
		payload = append(payload, map[string]interface{}{
			"id":       v.ID,
			"values":   v.Values,
			"metadata": v.Metadata,
		})
	}

	resp, err := s.doRequest(ctx, http.MethodPost, host+"/vectors/upsert", map[string]interface{}{
		"vectors": payload,
	})
	if err != nil {
		return apperrors.NewUpstreamError("pinecone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return upstreamFromResponse("pinecone", resp)
	}

	return nil
}

func (s *pineconeVectorStore) DeleteByIDPrefix(ctx context.Context, prefix string) (int, error) {
	if err := s.checkCredential(); err != nil {
		return 0, err
	}

	stats, err := s.DescribeIndex(ctx)
	if err != nil {
		return 0, err
	}

	// 服务端不支持按ID前缀直接删除：先用零向量加元数据过滤查出候选，
	// 再按ID分批删除
	zeroVector := make([]float32, stats.Dimension)
	matches, err := s.Query(ctx, QueryRequest{
		Vector:          zeroVector,
		TopK:            1000,
		IncludeMetadata: true,
		Filter: map[string]interface{}{
			"id": map[string]interface{}{"$eq": prefix},
		},
	})
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, m := range matches {
		if strings.HasPrefix(m.ID, prefix) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("vectors with prefix %q", prefix))
	}

	host, err := s.resolveHost(ctx)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(ids); start += s.deleteBatchSize {
		end := start + s.deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		resp, err := s.doRequest(ctx, http.MethodPost, host+"/vectors/delete", map[string]interface{}{
			"ids": ids[start:end],
		})
		if err != nil {
			return 0, apperrors.NewUpstreamError("pinecone", err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return 0, upstreamFromResponse("pinecone", resp)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	return len(ids), nil
}

func (s *pineconeVectorStore) ListIndexes(ctx context.Context) ([]string, error) {
	if err := s.checkCredential(); err != nil {
		return nil, err
	}

	resp, err := s.doRequest(ctx, http.MethodGet, s.controlPlane+"/indexes", nil)
	if err != nil {
		return nil, apperrors.NewUpstreamError("pinecone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, upstreamFromResponse("pinecone", resp)
	}

	var listResp struct {
		Indexes []struct {
			Name string `json:"name"`
		} `json:"indexes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, apperrors.NewUpstreamError("pinecone", err)
	}

	names := make([]string, 0, len(listResp.Indexes))
	for _, idx := range listResp.Indexes {
		names = append(names, idx.Name)
	}

	return names, nil
}

// EnsureIndex 检查索引是否存在，不存在则创建serverless索引
func (s *pineconeVectorStore) EnsureIndex(ctx context.Context) error {
	if err := s.checkCredential(); err != nil {
		return err
	}

	names, err := s.ListIndexes(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == s.indexName {
			return nil
		}
	}

	body := map[string]interface{}{
		"name":      s.indexName,
		"dimension": s.dimension,
		"metric":    s.metric,
		"spec": map[string]interface{}{
			"serverless": map[string]interface{}{
				"cloud":  "aws",
				"region": s.environment,
			},
		},
	}
	resp, err := s.doRequest(ctx, http.MethodPost, s.controlPlane+"/indexes", body)
	if err != nil {
		return apperrors.NewUpstreamError("pinecone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return upstreamFromResponse("pinecone", resp)
	}

	return nil
}

func (s *pineconeVectorStore) Ready() bool {
	return s.apiKey != ""
}

func (s *pineconeVectorStore) doRequest(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	return s.client.Do(req)
}

func upstreamFromResponse(provider string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return apperrors.NewUpstreamError(provider, fmt.Errorf("%s %s", resp.Status, strings.TrimSpace(string(raw))))
}
