package knowledge

import (
	"strings"
	"unicode"
)

// Chunk 表示分块后的文本结构
type Chunk struct {
	Text  string
	Index int
	Total int
}

// Chunker 文本分块器
type Chunker struct {
	chunkSize int
}

// NewChunker 创建分块器
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	return &Chunker{chunkSize: chunkSize}
}

// Split 将清洗后的文本切分为多个chunk。
// 每个chunk长度不超过chunkSize个rune，chunk按顺序拼接可还原输入。
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk

	for start := 0; start < len(runes); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:  string(runes[start:end]),
			Index: len(chunks),
		})
	}

	for i := range chunks {
		chunks[i].Total = len(chunks)
	}

	return chunks
}

// CleanText 清洗原始文本：压缩空白字符并去除控制字符
func CleanText(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	var prevSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			builder.WriteRune(' ')
			prevSpace = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		builder.WriteRune(r)
		prevSpace = false
	}

	return strings.TrimSpace(builder.String())
}
