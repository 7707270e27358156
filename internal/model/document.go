// Package model 包含了应用的数据模型定义。
package model

import (
	"fmt"
	"time"
)

// Chunk 是文档的一个切片，创建后不再修改，只属于其所在的 Document。
type Chunk struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"` // 在文档内从 1 开始的序号
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Document 是一次成功上传的文本文件及其全部切片。
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Chunks    []Chunk   `json:"chunks"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentSummary 是返回给前端的文档摘要。
type DocumentSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

// Summary 生成文档摘要。
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{ID: d.ID, Name: d.Name, Chunks: len(d.Chunks)}
}

// Summaries 按输入顺序生成摘要列表，空输入返回空切片而非 nil。
func Summaries(docs []*Document) []DocumentSummary {
	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Summary())
	}
	return out
}

// UploadFile 是上传请求中的单个文件。
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// ScoredChunk 是检索结果：相似度得分、来源文档与切片。
type ScoredChunk struct {
	Score    float64
	Document *Document
	Chunk    *Chunk
}

// Citation 返回 "<文档名> • chunk <序号>" 格式的引用。
func (s ScoredChunk) Citation() string {
	return Citation(s.Document.Name, s.Chunk.Index)
}

// Citation 格式化引用字符串，index 为从 1 开始的切片序号。
func Citation(name string, index int) string {
	return fmt.Sprintf("%s • chunk %d", name, index)
}

// SearchResult 是检索预览接口返回的单条结果。
type SearchResult struct {
	Score        float64 `json:"score"`
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	ChunkIndex   int     `json:"chunkIndex"`
	Text         string  `json:"text"`
	Citation     string  `json:"citation"`
}

// Result 转换为对外的检索结果，不包含向量。
func (s ScoredChunk) Result() SearchResult {
	return SearchResult{
		Score:        s.Score,
		DocumentID:   s.Document.ID,
		DocumentName: s.Document.Name,
		ChunkIndex:   s.Chunk.Index,
		Text:         s.Chunk.Text,
		Citation:     s.Citation(),
	}
}
