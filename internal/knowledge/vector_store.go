package knowledge

import "context"

// StoredVector 存储向量信息。ID由文档ID与分块序号组成，重复写入同一ID会覆盖。
type StoredVector struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// IndexStats 索引统计信息
type IndexStats struct {
	Dimension        int
	TotalVectorCount int
	Namespaces       map[string]int
}

// QueryRequest 向量检索请求
type QueryRequest struct {
	Vector          []float32
	TopK            int
	Filter          map[string]interface{}
	IncludeMetadata bool
}

// QueryMatch 单条检索结果，按相似度降序返回。
// 排序由服务商的近似检索决定，同分顺序不保证稳定。
type QueryMatch struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
	Score    float64
}

// VectorStore 向量存储抽象
type VectorStore interface {
	// DescribeIndex 查询索引的实际维度与向量总数
	DescribeIndex(ctx context.Context) (IndexStats, error)
	// Query 执行相似度检索
	Query(ctx context.Context, req QueryRequest) ([]QueryMatch, error)
	// Upsert 批量写入向量，按ID幂等覆盖
	Upsert(ctx context.Context, vectors []StoredVector) error
	// DeleteByIDPrefix 删除指定文档前缀的全部向量，返回删除数量。
	// 零匹配返回NotFound错误而非空成功。
	DeleteByIDPrefix(ctx context.Context, prefix string) (int, error)
	// ListIndexes 列出可用索引，用于连接测试
	ListIndexes(ctx context.Context) ([]string, error)
	Ready() bool
}

// IndexEnsurer 可选能力：在首次写入前确保索引存在
type IndexEnsurer interface {
	EnsureIndex(ctx context.Context) error
}
