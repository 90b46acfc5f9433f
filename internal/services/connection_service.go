package services

import (
	"context"
	"fmt"

	"github.com/avatarhub/backend-go/internal/heygen"
	"github.com/avatarhub/backend-go/internal/knowledge"
	"github.com/avatarhub/backend-go/internal/llm"
	"go.uber.org/zap"
)

// TestResult 单个服务商的连接测试结果
type TestResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Error    string   `json:"error,omitempty"`
	Response string   `json:"response,omitempty"`
	Indexes  []string `json:"indexes,omitempty"`
}

// ConnectionService 外部服务商凭证测试
type ConnectionService struct {
	completer llm.Completer
	store     knowledge.VectorStore
	avatar    *heygen.Service
	logger    *zap.Logger
}

// NewConnectionService 创建连接测试服务
func NewConnectionService(completer llm.Completer, store knowledge.VectorStore, avatar *heygen.Service, logger *zap.Logger) *ConnectionService {
	if logger == nil {
		logger = zap.L()
	}
	return &ConnectionService{
		completer: completer,
		store:     store,
		avatar:    avatar,
		logger:    logger,
	}
}

// Test 按类型执行连接测试，type为"all"时测试所有服务商
func (s *ConnectionService) Test(ctx context.Context, testType string) map[string]TestResult {
	results := make(map[string]TestResult)

	if testType == "openai" || testType == "all" {
		results["openai"] = s.testOpenAI(ctx)
	}
	if testType == "pinecone" || testType == "all" {
		results["pinecone"] = s.testVectorStore(ctx)
	}
	if testType == "heygen" || testType == "all" {
		results["heygen"] = s.testHeyGen(ctx)
	}

	return results
}

func (s *ConnectionService) testOpenAI(ctx context.Context) TestResult {
	reply, err := s.completer.Ping(ctx)
	if err != nil {
		s.logger.Warn("OpenAI connection test failed", zap.Error(err))
		return TestResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to test OpenAI API: %v", err),
		}
	}

	return TestResult{
		Success:  true,
		Message:  "OpenAI API key is working",
		Response: reply,
	}
}

func (s *ConnectionService) testVectorStore(ctx context.Context) TestResult {
	indexes, err := s.store.ListIndexes(ctx)
	if err != nil {
		s.logger.Warn("Vector store connection test failed", zap.Error(err))
		return TestResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to test vector store: %v", err),
		}
	}

	return TestResult{
		Success: true,
		Message: "Vector store connection is working",
		Indexes: indexes,
	}
}

func (s *ConnectionService) testHeyGen(ctx context.Context) TestResult {
	if _, err := s.avatar.CreateSessionToken(ctx); err != nil {
		s.logger.Warn("HeyGen connection test failed", zap.Error(err))
		return TestResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to test HeyGen API: %v", err),
		}
	}

	return TestResult{
		Success: true,
		Message: "HeyGen API key is working",
	}
}
