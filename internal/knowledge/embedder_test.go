package knowledge

import (
	"context"
	"testing"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedder_NoKey(t *testing.T) {
	embedder := NewOpenAIEmbedder("", "text-embedding-ada-002")

	assert.False(t, embedder.Ready())

	_, err := embedder.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotConfigured(err))
}

func TestNewOpenAIEmbedder_WithKey(t *testing.T) {
	embedder := NewOpenAIEmbedder("sk-test", "")
	assert.True(t, embedder.Ready())
}

func TestAdjustDimension_Truncate(t *testing.T) {
	vec := make([]float32, 1536)
	for i := range vec {
		vec[i] = float32(i)
	}

	adjusted := AdjustDimension(vec, 1024)
	require.Len(t, adjusted, 1024)
	// 截断保留前缀
	for i := range adjusted {
		assert.Equal(t, vec[i], adjusted[i])
	}
}

func TestAdjustDimension_Pad(t *testing.T) {
	vec := []float32{1, 2, 3}

	adjusted := AdjustDimension(vec, 8)
	require.Len(t, adjusted, 8)
	assert.Equal(t, []float32{1, 2, 3, 0, 0, 0, 0, 0}, adjusted)
}

func TestAdjustDimension_SameDimension(t *testing.T) {
	vec := []float32{1, 2, 3}

	adjusted := AdjustDimension(vec, 3)
	assert.Equal(t, vec, adjusted)
	// 返回副本，修改不影响原向量
	adjusted[0] = 99
	assert.Equal(t, float32(1), vec[0])
}

func TestAdjustDimension_NegativeDimension(t *testing.T) {
	assert.Empty(t, AdjustDimension([]float32{1, 2}, -1))
}
