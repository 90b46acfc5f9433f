package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	require.NoError(t, LoadConfig())

	cfg := GetAppConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "text-embedding-ada-002", cfg.AI.EmbeddingModel)
	assert.Equal(t, "gpt-4", cfg.AI.ContextModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.GeneralModel)
	assert.Equal(t, 0.7, cfg.AI.Temperature)
	assert.Equal(t, 1000, cfg.AI.MaxTokens)

	assert.Equal(t, "pinecone", cfg.VectorStore.Provider)
	assert.Equal(t, "custom-gpt-knowledge", cfg.VectorStore.Pinecone.IndexName)
	assert.Equal(t, 1024, cfg.VectorStore.Pinecone.Dimension)

	assert.Equal(t, 2000, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 5, cfg.Knowledge.EmbedBatchSize)
	assert.Equal(t, 100, cfg.Knowledge.DeleteBatchSize)

	assert.Equal(t, 5, cfg.Retrieval.BaseTopK)
	assert.Equal(t, 0.3, cfg.Retrieval.ScoreThreshold)

	assert.Equal(t, "https://api.heygen.com", cfg.Avatar.BaseURL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("OPENAI_API_KEY", "sk-test-override")
	t.Setenv("VECTOR_STORE_PROVIDER", "MILVUS")
	t.Setenv("PINECONE_INDEX_NAME", "my-index")
	t.Setenv("MILVUS_ADDRESS", "milvus.internal:19530")
	t.Setenv("HEYGEN_API_KEY", "hg-test")

	require.NoError(t, LoadConfig())

	cfg := GetAppConfig()
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sk-test-override", cfg.AI.OpenAIAPIKey)
	// provider统一转小写
	assert.Equal(t, "milvus", cfg.VectorStore.Provider)
	assert.Equal(t, "my-index", cfg.VectorStore.Pinecone.IndexName)
	assert.Equal(t, "milvus.internal:19530", cfg.VectorStore.Milvus.Address)
	assert.Equal(t, "hg-test", cfg.Avatar.HeyGenAPIKey)
}
