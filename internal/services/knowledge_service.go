package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/avatarhub/backend-go/internal/config"
	apperrors "github.com/avatarhub/backend-go/internal/errors"
	"github.com/avatarhub/backend-go/internal/knowledge"
	"github.com/avatarhub/backend-go/internal/metrics"
	"go.uber.org/zap"
)

// FileSummary 知识库中一个文件的聚合信息
type FileSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Date    string `json:"date"`
	Size    string `json:"size"`
	Vectors int    `json:"vectors"`
}

// CatalogStats 索引整体统计
type CatalogStats struct {
	TotalVectors int `json:"totalVectors"`
	Dimensions   int `json:"dimensions"`
}

// Catalog 知识库目录响应
type Catalog struct {
	Files []FileSummary `json:"files"`
	Stats CatalogStats  `json:"stats"`
}

// KnowledgeService 知识库管理服务：文件入库、目录重建与按文件删除
type KnowledgeService struct {
	ingestor  *knowledge.Ingestor
	store     knowledge.VectorStore
	sampleTop int
	logger    *zap.Logger
}

// NewKnowledgeService 创建知识库管理服务
func NewKnowledgeService(ingestor *knowledge.Ingestor, store knowledge.VectorStore, cfg *config.Config, logger *zap.Logger) *KnowledgeService {
	if logger == nil {
		logger = zap.L()
	}
	sampleTop := cfg.Retrieval.SampleTopK
	if sampleTop <= 0 {
		sampleTop = 100
	}
	return &KnowledgeService{
		ingestor:  ingestor,
		store:     store,
		sampleTop: sampleTop,
		logger:    logger,
	}
}

// Upload 将上传的文件入库
func (s *KnowledgeService) Upload(ctx context.Context, file knowledge.UploadFile) (knowledge.IngestResult, error) {
	if strings.TrimSpace(file.Name) == "" {
		return knowledge.IngestResult{}, apperrors.NewValidationError("no file provided")
	}

	result, err := s.ingestor.Ingest(ctx, file)
	if err != nil {
		s.logger.Error("Document ingestion failed",
			zap.String("file_name", file.Name),
			zap.Error(err))
		return knowledge.IngestResult{}, err
	}

	metrics.IngestedChunks.Add(float64(result.ChunkCount))
	s.logger.Info("Document ingested",
		zap.String("file_id", result.FileID),
		zap.Int("chunks", result.ChunkCount))

	return result, nil
}

// List 重建知识库目录。
// 没有独立的文件元数据存储，这里用零向量查询采样向量元数据按文件聚合。
// 结果是近似的，不保证覆盖全部文件。
func (s *KnowledgeService) List(ctx context.Context) (Catalog, error) {
	stats, err := s.store.DescribeIndex(ctx)
	if err != nil {
		return Catalog{}, err
	}

	catalog := Catalog{
		Files: []FileSummary{},
		Stats: CatalogStats{
			TotalVectors: stats.TotalVectorCount,
			Dimensions:   stats.Dimension,
		},
	}

	if stats.TotalVectorCount == 0 {
		return catalog, nil
	}

	zeroVector := make([]float32, stats.Dimension)
	matches, err := s.store.Query(ctx, knowledge.QueryRequest{
		Vector:          zeroVector,
		TopK:            s.sampleTop,
		IncludeMetadata: true,
	})
	if err != nil {
		return Catalog{}, err
	}

	byFile := make(map[string]*FileSummary)
	var order []string
	for _, m := range matches {
		fileID, _ := m.Metadata["id"].(string)
		source, _ := m.Metadata["source"].(string)
		if fileID == "" || source == "" {
			continue
		}

		summary, ok := byFile[fileID]
		if !ok {
			summary = &FileSummary{
				ID:   fileID,
				Name: source,
				Size: "Unknown",
			}
			if date, ok := m.Metadata["uploadDate"].(string); ok {
				summary.Date = date
			}
			if size, ok := m.Metadata["size"].(float64); ok && size > 0 {
				summary.Size = fmt.Sprintf("%d KB", int(size/1024))
			}
			byFile[fileID] = summary
			order = append(order, fileID)
		}
		summary.Vectors++
	}

	for _, fileID := range order {
		catalog.Files = append(catalog.Files, *byFile[fileID])
	}

	return catalog, nil
}

// Delete 删除指定文件ID前缀的全部向量，返回删除数量
func (s *KnowledgeService) Delete(ctx context.Context, fileID string) (int, error) {
	if strings.TrimSpace(fileID) == "" {
		return 0, apperrors.NewValidationError("no file ID provided")
	}

	deleted, err := s.store.DeleteByIDPrefix(ctx, fileID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Document removed from knowledge base",
		zap.String("file_id", fileID),
		zap.Int("deleted_vectors", deleted))

	return deleted, nil
}
