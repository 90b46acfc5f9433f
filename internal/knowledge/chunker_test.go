package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Split(t *testing.T) {
	chunker := NewChunker(2000)

	text := strings.Repeat("a", 12000)
	chunks := chunker.Split(text)

	require.Len(t, chunks, 6)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, 6, chunk.Total)
		assert.Equal(t, 2000, len([]rune(chunk.Text)))
	}
}

func TestChunker_Split_Reconstruct(t *testing.T) {
	chunker := NewChunker(7)

	text := "The quick brown fox jumps over the lazy dog"
	chunks := chunker.Split(text)

	// 按顺序拼接可还原输入
	var builder strings.Builder
	for _, chunk := range chunks {
		builder.WriteString(chunk.Text)
	}
	assert.Equal(t, text, builder.String())
}

func TestChunker_Split_Empty(t *testing.T) {
	chunker := NewChunker(2000)
	assert.Empty(t, chunker.Split(""))
}

func TestChunker_Split_SingleRune(t *testing.T) {
	chunker := NewChunker(2000)

	chunks := chunker.Split("x")
	require.Len(t, chunks, 1)
	assert.Equal(t, "x", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)
}

func TestChunker_Split_MultiByte(t *testing.T) {
	// 按rune切分，多字节字符不会被截断
	chunker := NewChunker(2)

	chunks := chunker.Split("你好世界啊")
	require.Len(t, chunks, 3)
	assert.Equal(t, "你好", chunks[0].Text)
	assert.Equal(t, "世界", chunks[1].Text)
	assert.Equal(t, "啊", chunks[2].Text)
}

func TestNewChunker_InvalidSize(t *testing.T) {
	chunker := NewChunker(0)

	chunks := chunker.Split(strings.Repeat("a", 2001))
	assert.Len(t, chunks, 2)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapse whitespace", "hello   world\n\nnext\tline", "hello world next line"},
		{"trim edges", "  padded  ", "padded"},
		{"strip control chars", "aa\x00bb\x07cc", "aabbcc"},
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}
