package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	openai "github.com/sashabaranov/go-openai"
)

var errNoChoices = errors.New("no response from completion service")

// Message 聊天消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest 聊天补全请求
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completer 聊天补全接口
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Ping 发送最小请求验证凭证有效
	Ping(ctx context.Context) (string, error)
	Ready() bool
}

// NoopCompleter 未配置凭证时的占位实现
type NoopCompleter struct{}

func (n *NoopCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return "", apperrors.NewConfigurationError("OpenAI API key is not configured")
}

func (n *NoopCompleter) Ping(ctx context.Context) (string, error) {
	return "", apperrors.NewConfigurationError("OpenAI API key is not configured")
}

func (n *NoopCompleter) Ready() bool {
	return false
}

// OpenAICompleter 使用OpenAI Chat Completion API
type OpenAICompleter struct {
	client  *openai.Client
	limiter sync.Mutex
}

// NewOpenAICompleter 创建OpenAI聊天补全客户端
func NewOpenAICompleter(apiKey string) Completer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &NoopCompleter{}
	}
	return &OpenAICompleter{client: openai.NewClient(apiKey)}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", apperrors.NewValidationError("messages are empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	c.limiter.Lock()
	defer c.limiter.Unlock()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", apperrors.NewUpstreamError("openai completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewUpstreamError("openai completion", errNoChoices)
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) Ping(ctx context.Context) (string, error) {
	return c.Complete(ctx, CompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []Message{
			{Role: RoleUser, Content: "Hello, are you working?"},
		},
		MaxTokens: 10,
	})
}

func (c *OpenAICompleter) Ready() bool {
	return c.client != nil
}
