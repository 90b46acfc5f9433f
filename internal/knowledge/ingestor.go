package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadFile 上传文件内容
type UploadFile struct {
	Name     string
	MimeType string
	Size     int64
	Content  string
}

// IngestResult 入库结果
type IngestResult struct {
	FileID     string
	ChunkCount int
}

// IngestorOptions 摄取流水线配置
type IngestorOptions struct {
	ChunkSize      int
	EmbedBatchSize int
}

// Ingestor 文档摄取流水线：清洗、分块、向量化并写入向量存储
type Ingestor struct {
	embedder       Embedder
	store          VectorStore
	chunker        *Chunker
	embedBatchSize int
	logger         *zap.Logger
}

// NewIngestor 创建摄取流水线
func NewIngestor(embedder Embedder, store VectorStore, opts IngestorOptions, logger *zap.Logger) *Ingestor {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 5
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Ingestor{
		embedder:       embedder,
		store:          store,
		chunker:        NewChunker(opts.ChunkSize),
		embedBatchSize: opts.EmbedBatchSize,
		logger:         logger,
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NewFileID 由清理后的文件名加随机后缀生成唯一文件ID
func NewFileID(name string) string {
	return fmt.Sprintf("%s-%s", whitespaceRun.ReplaceAllString(name, "-"), uuid.NewString())
}

// Ingest 执行完整摄取流程。
// 分块按固定批次处理，批内并发向量化，批间串行以限制未完成的外部请求数。
// 任一批次失败即中止后续批次；已写入的批次保留在存储中，不做回滚。
func (ing *Ingestor) Ingest(ctx context.Context, file UploadFile) (IngestResult, error) {
	cleaned := CleanText(file.Content)
	if cleaned == "" {
		return IngestResult{}, apperrors.NewValidationError("file contains no usable text")
	}

	chunks := ing.chunker.Split(cleaned)
	fileID := NewFileID(file.Name)

	ing.logger.Info("Starting document ingestion",
		zap.String("file_id", fileID),
		zap.String("file_name", file.Name),
		zap.Int("chunks", len(chunks)))

	if ensurer, ok := ing.store.(IndexEnsurer); ok {
		if err := ensurer.EnsureIndex(ctx); err != nil {
			return IngestResult{}, err
		}
	}

	// 索引的实际维度以线上为准，不假定与嵌入模型的原生维度一致
	stats, err := ing.store.DescribeIndex(ctx)
	if err != nil {
		return IngestResult{}, err
	}

	uploadDate := time.Now().UTC().Format(time.RFC3339)

	for start := 0; start < len(chunks); start += ing.embedBatchSize {
		end := start + ing.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := ing.embedBatch(ctx, batch, stats.Dimension)
		if err != nil {
			return IngestResult{}, err
		}

		stored := make([]StoredVector, 0, len(batch))
		for i, chunk := range batch {
			stored = append(stored, StoredVector{
				ID:     fmt.Sprintf("%s-chunk-%d", fileID, chunk.Index),
				Values: vectors[i],
				Metadata: map[string]interface{}{
					"pageContent": chunk.Text,
					"source":      file.Name,
					"type":        file.MimeType,
					"size":        file.Size,
					"uploadDate":  uploadDate,
					"id":          fileID,
					"chunkIndex":  chunk.Index,
					"totalChunks": chunk.Total,
				},
			})
		}

		if err := ing.store.Upsert(ctx, stored); err != nil {
			return IngestResult{}, err
		}

		ing.logger.Debug("Ingestion batch completed",
			zap.String("file_id", fileID),
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(batch)))
	}

	return IngestResult{FileID: fileID, ChunkCount: len(chunks)}, nil
}

// embedBatch 并发向量化一个批次，并调整到索引维度
func (ing *Ingestor) embedBatch(ctx context.Context, batch []Chunk, dimension int) ([][]float32, error) {
	vectors := make([][]float32, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i, chunk := range batch {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			vec, err := ing.embedder.Embed(ctx, text)
			if err != nil {
				errs[i] = err
				return
			}
			vectors[i] = AdjustDimension(vec, dimension)
		}(i, chunk.Text)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return vectors, nil
}
