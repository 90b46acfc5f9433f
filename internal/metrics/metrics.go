package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 聊天与知识库相关的Prometheus指标
var (
	// ChatRequests 按模式统计聊天请求数（general/retrieval/hybrid）
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat requests by mode",
		},
		[]string{"mode"},
	)

	// RetrievalResults 按结果分类统计检索次数（hit/miss/degraded）
	RetrievalResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_results_total",
			Help: "Total number of vector retrievals by outcome",
		},
		[]string{"outcome"},
	)

	// GeneralFallbacks 统计降级为通用知识回答的次数
	GeneralFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "general_fallbacks_total",
			Help: "Total number of answers that fell back to general knowledge",
		},
	)

	// IngestedChunks 统计已入库的文档分块数
	IngestedChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingested_chunks_total",
			Help: "Total number of document chunks ingested into the vector store",
		},
	)

	// UpstreamErrors 按服务商统计外部调用失败数
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Total number of upstream provider failures",
		},
		[]string{"provider"},
	)

	// ChatDuration 聊天请求处理耗时
	ChatDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "Chat request processing time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
