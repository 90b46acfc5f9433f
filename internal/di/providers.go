package di

import (
	"fmt"

	"github.com/avatarhub/backend-go/internal/config"
	"github.com/avatarhub/backend-go/internal/heygen"
	"github.com/avatarhub/backend-go/internal/knowledge"
	"github.com/avatarhub/backend-go/internal/llm"
	"github.com/avatarhub/backend-go/internal/logger"
	"github.com/avatarhub/backend-go/internal/services"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册Logger
	if err := container.Provide(func() *zap.Logger {
		return logger.GetLogger()
	}); err != nil {
		return err
	}

	// 注册嵌入向量生成器
	if err := container.Provide(func(cfg *config.Config) knowledge.Embedder {
		return knowledge.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.EmbeddingModel)
	}); err != nil {
		return err
	}

	// 注册向量存储（按配置选择服务商）
	if err := container.Provide(func(cfg *config.Config) (knowledge.VectorStore, error) {
		switch cfg.VectorStore.Provider {
		case "milvus":
			return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
				Address:         cfg.VectorStore.Milvus.Address,
				Username:        cfg.VectorStore.Milvus.Username,
				Password:        cfg.VectorStore.Milvus.Password,
				Collection:      cfg.VectorStore.Milvus.Collection,
				Database:        cfg.VectorStore.Milvus.Database,
				UseTLS:          cfg.VectorStore.Milvus.TLS,
				VectorSize:      cfg.VectorStore.Milvus.VectorSize,
				Distance:        cfg.VectorStore.Milvus.Distance,
				DeleteBatchSize: cfg.Knowledge.DeleteBatchSize,
			})
		default:
			return knowledge.NewPineconeVectorStore(knowledge.PineconeOptions{
				APIKey:          cfg.VectorStore.Pinecone.APIKey,
				IndexName:       cfg.VectorStore.Pinecone.IndexName,
				IndexHost:       cfg.VectorStore.Pinecone.IndexHost,
				Environment:     cfg.VectorStore.Pinecone.Environment,
				Dimension:       cfg.VectorStore.Pinecone.Dimension,
				Metric:          cfg.VectorStore.Pinecone.Metric,
				DeleteBatchSize: cfg.Knowledge.DeleteBatchSize,
			}), nil
		}
	}); err != nil {
		return err
	}

	// 注册聊天补全客户端
	if err := container.Provide(func(cfg *config.Config) llm.Completer {
		return llm.NewOpenAICompleter(cfg.AI.OpenAIAPIKey)
	}); err != nil {
		return err
	}

	// 注册HeyGen数字人服务
	if err := container.Provide(func(cfg *config.Config) *heygen.Service {
		return heygen.NewService(cfg.Avatar.HeyGenAPIKey, cfg.Avatar.BaseURL)
	}); err != nil {
		return err
	}

	// 注册摄取流水线
	if err := container.Provide(func(embedder knowledge.Embedder, store knowledge.VectorStore, cfg *config.Config, log *zap.Logger) *knowledge.Ingestor {
		return knowledge.NewIngestor(embedder, store, knowledge.IngestorOptions{
			ChunkSize:      cfg.Knowledge.ChunkSize,
			EmbedBatchSize: cfg.Knowledge.EmbedBatchSize,
		}, log)
	}); err != nil {
		return err
	}

	// 注册业务服务
	if err := container.Provide(services.NewChatService); err != nil {
		return err
	}
	if err := container.Provide(services.NewKnowledgeService); err != nil {
		return err
	}
	if err := container.Provide(services.NewConnectionService); err != nil {
		return err
	}
	if err := container.Provide(services.NewMetricsService); err != nil {
		return err
	}

	return nil
}
