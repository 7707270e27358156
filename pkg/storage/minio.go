// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"laura-rag-go/internal/config"
	"laura-rag-go/pkg/log"
)

// archivePrefix 是所有归档对象的公共前缀，Purge 只删除该前缀下的对象。
const archivePrefix = "documents/"

// MinIOArchiver 把上传的原始文件归档到 MinIO，对象名为 documents/<文档ID>/<文件名>。
type MinIOArchiver struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOArchiver 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinIOArchiver(ctx context.Context, cfg config.MinIOConfig) (*MinIOArchiver, error) {
	// 1. 初始化 MinIO 客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	bucketName := cfg.BucketName
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}

	return &MinIOArchiver{client: client, bucketName: bucketName}, nil
}

// ObjectName 返回文档原始文件的对象名。
func ObjectName(docID, name string) string {
	return archivePrefix + docID + "/" + path.Base("/"+name)
}

// Archive 上传一份原始文件。
func (a *MinIOArchiver) Archive(ctx context.Context, docID, name, contentType string, data []byte) error {
	objectName := ObjectName(docID, name)
	_, err := a.client.PutObject(ctx, a.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"document-id": docID},
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", objectName, err)
	}
	log.Infof("[MinIOArchiver] 原始文件已归档, Object: %s, Size: %d", objectName, len(data))
	return nil
}

// Purge 删除所有归档对象。
func (a *MinIOArchiver) Purge(ctx context.Context) error {
	objectsCh := a.client.ListObjects(ctx, a.bucketName, minio.ListObjectsOptions{Prefix: archivePrefix, Recursive: true})

	var firstErr error
	for rErr := range a.client.RemoveObjects(ctx, a.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		log.Errorf("[MinIOArchiver] 删除归档对象失败, Object: %s, Error: %v", rErr.ObjectName, rErr.Err)
		if firstErr == nil {
			firstErr = rErr.Err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("failed to purge archive: %w", firstErr)
	}
	return nil
}
