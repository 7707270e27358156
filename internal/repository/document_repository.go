// Package repository 提供了文档存储的实现。
package repository

import (
	"context"
	"sync"

	"laura-rag-go/internal/model"
)

// DocumentRepository 定义了文档存储的操作接口。
type DocumentRepository interface {
	// Save 按文档 ID 插入或整体替换文档；一次调用中的文档要么全部写入，要么都不写入。
	Save(ctx context.Context, docs ...*model.Document) error
	// FindAll 返回所有文档，顺序为首次插入顺序。
	FindAll(ctx context.Context) ([]*model.Document, error)
	// DeleteAll 清空所有文档。
	DeleteAll(ctx context.Context) error
	// Count 返回文档数量。
	Count(ctx context.Context) (int, error)
}

// memoryDocumentRepository 是进程内的文档存储，进程重启后内容丢失。
// 互斥锁只保证 map 的并发安全，并发上传同一 ID 时仍然是后写者覆盖。
type memoryDocumentRepository struct {
	mu    sync.RWMutex
	docs  map[string]*model.Document
	order []string
}

// NewDocumentRepository 创建一个新的内存 DocumentRepository 实例。
func NewDocumentRepository() DocumentRepository {
	return &memoryDocumentRepository{docs: make(map[string]*model.Document)}
}

func (r *memoryDocumentRepository) Save(_ context.Context, docs ...*model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		if _, exists := r.docs[d.ID]; !exists {
			r.order = append(r.order, d.ID)
		}
		r.docs[d.ID] = d
	}
	return nil
}

func (r *memoryDocumentRepository) FindAll(_ context.Context) ([]*model.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Document, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.docs[id])
	}
	return out, nil
}

func (r *memoryDocumentRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]*model.Document)
	r.order = nil
	return nil
}

func (r *memoryDocumentRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}
