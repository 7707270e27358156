// Package pipeline 定义了文档入库的核心流程：切分、向量化、组装文档。
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"laura-rag-go/internal/config"
	"laura-rag-go/internal/model"
	"laura-rag-go/pkg/embedding"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

// Processor 封装了文档处理的所有依赖和逻辑。
type Processor struct {
	embeddingClient embedding.Client
	ragCfg          config.RAGConfig
	now             func() time.Time
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(embeddingClient embedding.Client, ragCfg config.RAGConfig) *Processor {
	return &Processor{
		embeddingClient: embeddingClient,
		ragCfg:          ragCfg,
		now:             time.Now,
	}
}

// Process 将一份纯文本处理为带向量的 Document。
// 任何一步失败都不返回部分结果，由调用方决定是否入库。
func (p *Processor) Process(ctx context.Context, name, text string) (*model.Document, error) {
	log.Infof("[Processor] 开始处理文件, FileName: %s", name)

	text = strings.TrimSpace(text)
	if text == "" {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", name)
		return nil, errs.Validation("file", fmt.Sprintf("File %s is empty or unreadable.", name))
	}

	// 1. 文本切块
	chunks := SplitText(text, p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	log.Infof("[Processor] 步骤1: 文本分块完成, 内容长度: %d 字符, chunkSize: %d, chunkOverlap: %d, 共 %d 个分块",
		utf8.RuneCountInString(text), p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap, len(chunks))

	// 2. 一次性批量向量化
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embeddingClient.EmbedTexts(ctx, texts)
	if err != nil {
		log.Errorf("[Processor] 文件 '%s' 向量化失败, Error: %v", name, err)
		return nil, fmt.Errorf("embed chunks of %s: %w", name, err)
	}
	if len(vectors) != len(chunks) {
		return nil, errs.NewUpstream("embeddings", 0, "",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	log.Infof("[Processor] 步骤2: 向量化完成, 共 %d 个向量", len(vectors))

	// 3. 组装文档，存储序号从 1 开始
	doc := &model.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Chunks:    make([]model.Chunk, 0, len(chunks)),
		CreatedAt: p.now(),
	}
	for i, c := range chunks {
		doc.Chunks = append(doc.Chunks, model.Chunk{
			ID:        uuid.NewString(),
			Index:     c.Index + 1,
			Text:      c.Text,
			Embedding: vectors[i],
		})
	}

	log.Infof("[Processor] 文件处理成功完成, FileName: %s, DocumentID: %s", name, doc.ID)
	return doc, nil
}
