package main

import (
	"context"
	"os"
	"path/filepath"

	"laura-rag-go/internal/model"
	"laura-rag-go/internal/service"
	"laura-rag-go/pkg/log"
)

// seedDocuments 扫描目录下文件并通过标准上传流程导入，已有同名文档的文件跳过。
// 每个文件单独上传，一个文件失败不影响其他文件。
func seedDocuments(ctx context.Context, dir string, docService service.DocumentService) int {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("seedDocuments: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return 0
	}

	existing := make(map[string]struct{})
	if docs, err := docService.List(ctx); err == nil {
		for _, d := range docs {
			existing[d.Name] = struct{}{}
		}
	}

	imported := 0
	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			return nil
		}

		fileName := info.Name()
		// 幂等检查：已导入则跳过
		if _, ok := existing[fileName]; ok {
			log.Infof("seedDocuments: 已存在，跳过: %s", fileName)
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("seedDocuments: 读取文件失败: %s, err=%v", path, err)
			return nil
		}

		// 不声明类型，由上传校验按内容嗅探
		file := model.UploadFile{Name: fileName, Size: int64(len(data)), Data: data}
		if _, err := docService.Upload(ctx, []model.UploadFile{file}); err != nil {
			log.Warnf("seedDocuments: 导入失败: %s, err=%v", path, err)
			return nil
		}
		existing[fileName] = struct{}{}
		imported++
		log.Infof("seedDocuments: 导入完成: %s", fileName)
		return nil
	})
	if walkErr != nil {
		log.Warnf("seedDocuments: 遍历目录发生错误: %v", walkErr)
	}
	return imported
}
