package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"laura-rag-go/internal/model"
)

type redisDocumentRepository struct {
	redisClient *redis.Client
	prefix      string
}

// NewRedisDocumentRepository 创建一个以 Redis 为后端的 DocumentRepository。
// 文档以 JSON 存放在哈希表中，首次插入顺序记录在有序集合里。
func NewRedisDocumentRepository(redisClient *redis.Client, prefix string) DocumentRepository {
	if prefix == "" {
		prefix = "laura"
	}
	return &redisDocumentRepository{redisClient: redisClient, prefix: prefix}
}

func (r *redisDocumentRepository) hashKey() string {
	return fmt.Sprintf("%s:documents", r.prefix)
}

func (r *redisDocumentRepository) orderKey() string {
	return fmt.Sprintf("%s:documents:order", r.prefix)
}

// Save 在一个 MULTI/EXEC 事务中写入所有文档；已存在的 ID 保留原有顺序。
func (r *redisDocumentRepository) Save(ctx context.Context, docs ...*model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	payloads := make(map[string]interface{}, len(docs))
	members := make([]*redis.Z, 0, len(docs))
	base := float64(time.Now().UnixMicro())
	for i, d := range docs {
		jsonData, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", d.ID, err)
		}
		payloads[d.ID] = jsonData
		members = append(members, &redis.Z{Score: base + float64(i), Member: d.ID})
	}

	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.hashKey(), payloads)
		pipe.ZAddNX(ctx, r.orderKey(), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}
	return nil
}

// FindAll 按首次插入顺序读取所有文档。
func (r *redisDocumentRepository) FindAll(ctx context.Context) ([]*model.Document, error) {
	ids, err := r.redisClient.ZRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}
	if len(ids) == 0 {
		return []*model.Document{}, nil
	}

	values, err := r.redisClient.HMGet(ctx, r.hashKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}

	docs := make([]*model.Document, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// 顺序集合与哈希表不一致时跳过缺失的文档
			continue
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", ids[i], err)
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func (r *redisDocumentRepository) DeleteAll(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, r.hashKey(), r.orderKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

func (r *redisDocumentRepository) Count(ctx context.Context) (int, error) {
	n, err := r.redisClient.HLen(ctx, r.hashKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}
