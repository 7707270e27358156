// Package service 提供了检索、文档管理与对话编排的业务逻辑。
package service

import (
	"context"
	"fmt"
	"sort"

	"laura-rag-go/internal/config"
	"laura-rag-go/internal/model"
	"laura-rag-go/internal/repository"
	"laura-rag-go/pkg/embedding"
	"laura-rag-go/pkg/log"
	"laura-rag-go/pkg/vector"
)

// DefaultTopK 是未指定 limit 时返回的最大分块数。
const DefaultTopK = 3

// SearchService 接口定义了向量检索操作。
type SearchService interface {
	// TopChunks 对所有文档的所有分块做全量线性扫描，按余弦相似度降序取前 limit 个，
	// 再丢弃得分不大于 threshold 的结果。
	TopChunks(ctx context.Context, query []float32, limit int, threshold float64) ([]model.ScoredChunk, error)
	// Search 向量化查询文本后按配置的阈值检索；limit <= 0 时使用配置的 topK。
	Search(ctx context.Context, query string, limit int) ([]model.ScoredChunk, error)
}

type searchService struct {
	docRepo         repository.DocumentRepository
	embeddingClient embedding.Client
	ragCfg          config.RAGConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(docRepo repository.DocumentRepository, embeddingClient embedding.Client, ragCfg config.RAGConfig) SearchService {
	return &searchService{
		docRepo:         docRepo,
		embeddingClient: embeddingClient,
		ragCfg:          ragCfg,
	}
}

func (s *searchService) Search(ctx context.Context, query string, limit int) ([]model.ScoredChunk, error) {
	if limit <= 0 {
		limit = s.ragCfg.TopK
	}
	queryVector, err := s.embeddingClient.EmbedText(ctx, query)
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	log.Infof("[SearchService] 向量化查询成功, 向量维度: %d", len(queryVector))
	return s.TopChunks(ctx, queryVector, limit, s.ragCfg.SimilarityThreshold)
}

func (s *searchService) TopChunks(ctx context.Context, query []float32, limit int, threshold float64) ([]model.ScoredChunk, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}

	docs, err := s.docRepo.FindAll(ctx)
	if err != nil {
		log.Errorf("[SearchService] 读取文档失败: %v", err)
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	// 1. 全量打分，顺序为文档插入顺序、文档内分块顺序
	var scored []model.ScoredChunk
	for _, doc := range docs {
		for i := range doc.Chunks {
			chunk := &doc.Chunks[i]
			scored = append(scored, model.ScoredChunk{
				Score:    vector.CosineSimilarity(query, chunk.Embedding),
				Document: doc,
				Chunk:    chunk,
			})
		}
	}

	// 2. 稳定排序，同分时保持扫描顺序
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	// 3. 先截断到 limit，再按阈值过滤
	if len(scored) > limit {
		scored = scored[:limit]
	}
	results := make([]model.ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if sc.Score > threshold {
			results = append(results, sc)
		}
	}

	log.Infof("[SearchService] 检索完成, 文档数: %d, 命中分块: %d, topK: %d, threshold: %.2f",
		len(docs), len(results), limit, threshold)
	return results, nil
}
