package knowledge

import (
	"context"
	"errors"
	"strings"
	"sync"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	openai "github.com/sashabaranov/go-openai"
)

var errEmptyResponse = errors.New("embedding response empty")

// Embedder 定义文本向量化接口。
// 返回的向量保持服务商原生维度，维度调整由调用方负责。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Ready() bool
}

// NoopEmbedder 默认占位实现，未配置凭证时使用
type NoopEmbedder struct{}

func (n *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperrors.NewConfigurationError("OpenAI API key is not configured")
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	limiter sync.Mutex
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器
func NewOpenAIEmbedder(apiKey, model string) Embedder {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopEmbedder{}
	}
	if model == "" {
		model = "text-embedding-ada-002"
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("text is empty")
	}

	e.limiter.Lock()
	defer e.limiter.Unlock()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError("openai embedding", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewUpstreamError("openai embedding", errEmptyResponse)
	}

	embedding := resp.Data[0].Embedding
	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}

func (e *OpenAIEmbedder) Ready() bool {
	return e.client != nil
}

// AdjustDimension 将向量调整到目标维度：超长截断，不足补零。
// 这是有损的兼容处理，跨维度的向量应视为降质匹配。
func AdjustDimension(vec []float32, dim int) []float32 {
	if dim < 0 {
		dim = 0
	}
	result := make([]float32, dim)
	copy(result, vec)
	return result
}
