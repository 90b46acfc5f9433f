package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	AI          AIConfig
	VectorStore VectorStoreConfig
	Knowledge   KnowledgeConfig
	Retrieval   RetrievalConfig
	Avatar      AvatarConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type AIConfig struct {
	OpenAIAPIKey    string
	EmbeddingModel  string
	ContextModel    string
	GeneralModel    string
	Temperature     float64
	MaxTokens       int
}

type VectorStoreConfig struct {
	Provider string
	Pinecone PineconeConfig
	Milvus   MilvusConfig
}

type PineconeConfig struct {
	APIKey      string
	IndexName   string
	IndexHost   string
	Environment string
	Dimension   int
	Metric      string
}

type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	TLS        bool
	VectorSize int
	Distance   string
}

type KnowledgeConfig struct {
	ChunkSize       int
	EmbedBatchSize  int
	DeleteBatchSize int
	MaxUploadSize   int64
}

type RetrievalConfig struct {
	BaseTopK       int
	ScoreThreshold float64
	SampleTopK     int
}

type AvatarConfig struct {
	HeyGenAPIKey string
	AvatarID     string
	BaseURL      string
}

var AppConfig *Config

// GetAppConfig 获取全局配置
func GetAppConfig() *Config {
	return AppConfig
}

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("ai.embedding_model", "text-embedding-ada-002")
	viper.SetDefault("ai.context_model", "gpt-4")
	viper.SetDefault("ai.general_model", "gpt-3.5-turbo")
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.max_tokens", 1000)
	viper.SetDefault("vector_store.provider", "pinecone")
	viper.SetDefault("vector_store.pinecone.index_name", "custom-gpt-knowledge")
	viper.SetDefault("vector_store.pinecone.environment", "us-east1-gcp")
	viper.SetDefault("vector_store.pinecone.dimension", 1024)
	viper.SetDefault("vector_store.pinecone.metric", "cosine")
	viper.SetDefault("vector_store.milvus.address", "localhost:19530")
	viper.SetDefault("vector_store.milvus.collection", "gpt_knowledge")
	viper.SetDefault("vector_store.milvus.database", "default")
	viper.SetDefault("vector_store.milvus.vector_size", 1024)
	viper.SetDefault("vector_store.milvus.distance", "COSINE")
	viper.SetDefault("knowledge.chunk_size", 2000)
	viper.SetDefault("knowledge.embed_batch_size", 5)
	viper.SetDefault("knowledge.delete_batch_size", 100)
	viper.SetDefault("knowledge.max_upload_size", 10*1024*1024)
	viper.SetDefault("retrieval.base_top_k", 5)
	viper.SetDefault("retrieval.score_threshold", 0.3)
	viper.SetDefault("retrieval.sample_top_k", 100)
	viper.SetDefault("avatar.base_url", "https://api.heygen.com")

	// 读取配置文件（可选）
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 环境变量覆盖
	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if env := os.Getenv("ENV"); env != "" {
		viper.Set("server.env", env)
	}
	if openaiKey := os.Getenv("OPENAI_API_KEY"); openaiKey != "" {
		viper.Set("ai.openai_api_key", openaiKey)
	}
	if model := os.Getenv("OPENAI_EMBEDDING_MODEL"); model != "" {
		viper.Set("ai.embedding_model", model)
	}
	if provider := os.Getenv("VECTOR_STORE_PROVIDER"); provider != "" {
		viper.Set("vector_store.provider", strings.ToLower(provider))
	}
	if pineconeKey := os.Getenv("PINECONE_API_KEY"); pineconeKey != "" {
		viper.Set("vector_store.pinecone.api_key", pineconeKey)
	}
	if indexName := os.Getenv("PINECONE_INDEX_NAME"); indexName != "" {
		viper.Set("vector_store.pinecone.index_name", indexName)
	}
	if indexHost := os.Getenv("PINECONE_INDEX_HOST"); indexHost != "" {
		viper.Set("vector_store.pinecone.index_host", indexHost)
	}
	if environment := os.Getenv("PINECONE_ENVIRONMENT"); environment != "" {
		viper.Set("vector_store.pinecone.environment", environment)
	}
	if milvusAddr := os.Getenv("MILVUS_ADDRESS"); milvusAddr != "" {
		viper.Set("vector_store.milvus.address", milvusAddr)
	}
	if milvusCollection := os.Getenv("MILVUS_COLLECTION"); milvusCollection != "" {
		viper.Set("vector_store.milvus.collection", milvusCollection)
	}
	if heygenKey := os.Getenv("HEYGEN_API_KEY"); heygenKey != "" {
		viper.Set("avatar.heygen_api_key", heygenKey)
	}
	if avatarID := os.Getenv("HEYGEN_AVATAR_ID"); avatarID != "" {
		viper.Set("avatar.avatar_id", avatarID)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		AI: AIConfig{
			OpenAIAPIKey:   viper.GetString("ai.openai_api_key"),
			EmbeddingModel: viper.GetString("ai.embedding_model"),
			ContextModel:   viper.GetString("ai.context_model"),
			GeneralModel:   viper.GetString("ai.general_model"),
			Temperature:    viper.GetFloat64("ai.temperature"),
			MaxTokens:      viper.GetInt("ai.max_tokens"),
		},
		VectorStore: VectorStoreConfig{
			Provider: viper.GetString("vector_store.provider"),
			Pinecone: PineconeConfig{
				APIKey:      viper.GetString("vector_store.pinecone.api_key"),
				IndexName:   viper.GetString("vector_store.pinecone.index_name"),
				IndexHost:   viper.GetString("vector_store.pinecone.index_host"),
				Environment: viper.GetString("vector_store.pinecone.environment"),
				Dimension:   viper.GetInt("vector_store.pinecone.dimension"),
				Metric:      viper.GetString("vector_store.pinecone.metric"),
			},
			Milvus: MilvusConfig{
				Address:    viper.GetString("vector_store.milvus.address"),
				Username:   viper.GetString("vector_store.milvus.username"),
				Password:   viper.GetString("vector_store.milvus.password"),
				Collection: viper.GetString("vector_store.milvus.collection"),
				Database:   viper.GetString("vector_store.milvus.database"),
				TLS:        viper.GetBool("vector_store.milvus.tls"),
				VectorSize: viper.GetInt("vector_store.milvus.vector_size"),
				Distance:   viper.GetString("vector_store.milvus.distance"),
			},
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:       viper.GetInt("knowledge.chunk_size"),
			EmbedBatchSize:  viper.GetInt("knowledge.embed_batch_size"),
			DeleteBatchSize: viper.GetInt("knowledge.delete_batch_size"),
			MaxUploadSize:   viper.GetInt64("knowledge.max_upload_size"),
		},
		Retrieval: RetrievalConfig{
			BaseTopK:       viper.GetInt("retrieval.base_top_k"),
			ScoreThreshold: viper.GetFloat64("retrieval.score_threshold"),
			SampleTopK:     viper.GetInt("retrieval.sample_top_k"),
		},
		Avatar: AvatarConfig{
			HeyGenAPIKey: viper.GetString("avatar.heygen_api_key"),
			AvatarID:     viper.GetString("avatar.avatar_id"),
			BaseURL:      viper.GetString("avatar.base_url"),
		},
	}

	return nil
}
