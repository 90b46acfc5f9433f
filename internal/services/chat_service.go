package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/avatarhub/backend-go/internal/config"
	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/avatarhub/backend-go/internal/knowledge"
	"github.com/avatarhub/backend-go/internal/llm"
	"github.com/avatarhub/backend-go/internal/metrics"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// NoInformationMessage 纯检索模式下没有可用上下文时返回的固定回复
const NoInformationMessage = "No relevant information was found in the knowledge base for this question."

// 模型自述上下文不足时的措辞，命中则放弃该回答。
// 这是对模型自然语言输出的启发式匹配，不是结构化保证。
var insufficientContextPhrases = []string{
	"does not contain",
	"doesn't contain",
	"no information",
	"not mention",
}

// ChatRequest 聊天生成请求
type ChatRequest struct {
	Messages      []llm.Message `json:"messages" validate:"required,min=1"`
	MixRatio      int           `json:"vectorRatio" validate:"min=0,max=100"`
	SummaryLength string        `json:"summaryLength"`
}

// ChatService 检索增强的聊天编排服务。
// 每次调用独立无状态，对话历史完全由请求携带。
type ChatService struct {
	embedder  knowledge.Embedder
	store     knowledge.VectorStore
	completer llm.Completer
	aiCfg     config.AIConfig
	retrieval config.RetrievalConfig
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewChatService 创建聊天编排服务
func NewChatService(embedder knowledge.Embedder, store knowledge.VectorStore, completer llm.Completer, cfg *config.Config, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.L()
	}
	return &ChatService{
		embedder:  embedder,
		store:     store,
		completer: completer,
		aiCfg:     cfg.AI,
		retrieval: cfg.Retrieval,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Respond 生成助手回复。
// mixRatio=0跳过检索，mixRatio=100只允许基于检索上下文回答，
// 中间值为混合模式：检索失败或低置信度时退回通用知识。
func (s *ChatService) Respond(ctx context.Context, req ChatRequest) (string, error) {
	started := time.Now()
	defer func() {
		metrics.ChatDuration.Observe(time.Since(started).Seconds())
	}()

	if err := s.validate.Struct(req); err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}

	query, ok := latestUserMessage(req.Messages)
	if !ok {
		return "", apperrors.NewValidationError("no user message found")
	}

	switch {
	case req.MixRatio == 0:
		metrics.ChatRequests.WithLabelValues("general").Inc()
		return s.generalAnswer(ctx, req)

	case req.MixRatio == 100:
		metrics.ChatRequests.WithLabelValues("retrieval").Inc()
		return s.retrievalOnlyAnswer(ctx, req, query)

	default:
		metrics.ChatRequests.WithLabelValues("hybrid").Inc()
		return s.hybridAnswer(ctx, req, query)
	}
}

func latestUserMessage(messages []llm.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}

// retrieveContext 执行向量检索并按置信度过滤。
// 任何检索失败都降级为零结果，绝不让整个聊天请求失败。
func (s *ChatService) retrieveContext(ctx context.Context, query string, mixRatio int) []knowledge.QueryMatch {
	topK := int(math.Floor(float64(s.retrieval.BaseTopK) * float64(mixRatio) / 100))
	if topK < 1 {
		topK = 1
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Query embedding failed, degrading to zero results", zap.Error(err))
		metrics.UpstreamErrors.WithLabelValues("openai").Inc()
		metrics.RetrievalResults.WithLabelValues("degraded").Inc()
		return nil
	}

	stats, err := s.store.DescribeIndex(ctx)
	if err != nil {
		s.logger.Warn("Index lookup failed, degrading to zero results", zap.Error(err))
		metrics.UpstreamErrors.WithLabelValues("vector_store").Inc()
		metrics.RetrievalResults.WithLabelValues("degraded").Inc()
		return nil
	}

	matches, err := s.store.Query(ctx, knowledge.QueryRequest{
		Vector:          knowledge.AdjustDimension(embedding, stats.Dimension),
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		s.logger.Warn("Vector query failed, degrading to zero results", zap.Error(err))
		metrics.UpstreamErrors.WithLabelValues("vector_store").Inc()
		metrics.RetrievalResults.WithLabelValues("degraded").Inc()
		return nil
	}

	// 置信度过滤：只保留score高于阈值的结果
	filtered := matches[:0]
	for _, m := range matches {
		if m.Score > s.retrieval.ScoreThreshold {
			filtered = append(filtered, m)
		}
	}

	if len(filtered) == 0 {
		metrics.RetrievalResults.WithLabelValues("miss").Inc()
	} else {
		metrics.RetrievalResults.WithLabelValues("hit").Inc()
	}

	s.logger.Debug("Vector retrieval completed",
		zap.Int("top_k", topK),
		zap.Int("raw_matches", len(matches)),
		zap.Int("usable_matches", len(filtered)))

	return filtered
}

func (s *ChatService) retrievalOnlyAnswer(ctx context.Context, req ChatRequest, query string) (string, error) {
	matches := s.retrieveContext(ctx, query, req.MixRatio)
	if len(matches) == 0 {
		// 不调用补全模型做开放生成
		return NoInformationMessage, nil
	}

	answer, err := s.contextualAnswer(ctx, req, query, matches)
	if err != nil {
		return "", err
	}

	// 纯检索模式不允许混入外部知识，模型自述无信息时直接返回固定回复
	if disclaimsContext(answer) {
		return NoInformationMessage, nil
	}

	return answer, nil
}

func (s *ChatService) hybridAnswer(ctx context.Context, req ChatRequest, query string) (string, error) {
	matches := s.retrieveContext(ctx, query, req.MixRatio)
	if len(matches) == 0 {
		metrics.GeneralFallbacks.Inc()
		return s.generalAnswer(ctx, req)
	}

	answer, err := s.contextualAnswer(ctx, req, query, matches)
	if err != nil {
		return "", err
	}

	if disclaimsContext(answer) {
		s.logger.Info("Contextual answer disclaims knowledge base content, falling back to general knowledge")
		metrics.GeneralFallbacks.Inc()
		return s.generalAnswer(ctx, req)
	}

	return answer, nil
}

// contextualAnswer 基于检索到的上下文生成回答
func (s *ChatService) contextualAnswer(ctx context.Context, req ChatRequest, query string, matches []knowledge.QueryMatch) (string, error) {
	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Content)
	}

	prompt := fmt.Sprintf(`Based on the following information from our knowledge base, please answer the question. If the information doesn't fully answer the question, say so.

Context from knowledge base:
%s

Question: %s

Please provide a clear and concise answer based on the information above. If the information doesn't fully answer the question, acknowledge that and provide what you can from the available information.`,
		strings.Join(contents, "\n\n"), query)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a helpful AI assistant that answers questions based on the provided context."},
		{Role: llm.RoleUser, Content: prompt},
	}
	messages = appendSummaryInstruction(messages, req.SummaryLength)

	answer, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Model:    s.aiCfg.ContextModel,
		Messages: messages,
	})
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("openai").Inc()
		return "", err
	}

	return answer, nil
}

// generalAnswer 不携带知识库上下文，直接用通用知识回答
func (s *ChatService) generalAnswer(ctx context.Context, req ChatRequest) (string, error) {
	messages := []llm.Message{
		{
			Role:    llm.RoleSystem,
			Content: "You are ChatGPT, a large language model trained by OpenAI. Answer questions directly using your general knowledge. Never say 'the information provided' or similar phrases - just provide the information you know.",
		},
	}
	messages = append(messages, summarizeHistory(req.Messages, req.SummaryLength)...)
	messages = appendSummaryInstruction(messages, req.SummaryLength)

	answer, err := s.completer.Complete(ctx, llm.CompletionRequest{
		Model:       s.aiCfg.GeneralModel,
		Messages:    messages,
		Temperature: float32(s.aiCfg.Temperature),
		MaxTokens:   s.aiCfg.MaxTokens,
	})
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("openai").Inc()
		return "", err
	}

	return answer, nil
}

// disclaimsContext 判断回答是否自述上下文不足
func disclaimsContext(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, phrase := range insufficientContextPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

const (
	summaryMaxExchanges  = 6
	summaryMessageBudget = 280
)

// summarizeHistory 历史压缩：保留最新一条消息，其余压缩为一条合成的system消息。
// summaryLength为"none"或空时原样返回。
func summarizeHistory(messages []llm.Message, summaryLength string) []llm.Message {
	if _, enabled := parseSummaryWords(summaryLength); !enabled {
		return messages
	}
	if len(messages) <= 1 {
		return messages
	}

	history := messages[:len(messages)-1]
	if len(history) > summaryMaxExchanges {
		history = history[len(history)-summaryMaxExchanges:]
	}

	var builder strings.Builder
	builder.WriteString("Conversation so far (condensed):")
	for _, m := range history {
		content := m.Content
		if runes := []rune(content); len(runes) > summaryMessageBudget {
			content = string(runes[:summaryMessageBudget]) + "..."
		}
		builder.WriteString(fmt.Sprintf("\n%s: %s", m.Role, content))
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: builder.String()},
		messages[len(messages)-1],
	}
}

// appendSummaryInstruction 按请求的字数要求追加输出限制指令
func appendSummaryInstruction(messages []llm.Message, summaryLength string) []llm.Message {
	words, enabled := parseSummaryWords(summaryLength)
	if !enabled {
		return messages
	}
	return append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf("Keep your answer within %d words.", words),
	})
}

func parseSummaryWords(summaryLength string) (int, bool) {
	summaryLength = strings.TrimSpace(summaryLength)
	if summaryLength == "" || summaryLength == "none" {
		return 0, false
	}
	words, err := strconv.Atoi(summaryLength)
	if err != nil || words <= 0 {
		return 0, false
	}
	return words, true
}
