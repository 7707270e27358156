// Package database 负责外部数据存储的连接初始化。
package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"laura-rag-go/internal/config"
	"laura-rag-go/pkg/log"
)

// NewRedis 创建 Redis 客户端并测试连接，连接失败时关闭客户端并返回错误。
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Infof("Redis client connected successfully, addr: %s, db: %d", cfg.Addr, cfg.DB)
	return rdb, nil
}
