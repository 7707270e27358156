package service

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"laura-rag-go/internal/config"
	"laura-rag-go/internal/model"
	"laura-rag-go/internal/pipeline"
	"laura-rag-go/internal/repository"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

// DocumentArchiver 归档上传的原始文件，归档失败不影响上传结果。
type DocumentArchiver interface {
	Archive(ctx context.Context, docID, name, contentType string, data []byte) error
	Purge(ctx context.Context) error
}

// DocumentService 接口定义了文档管理相关的业务操作。
type DocumentService interface {
	// Upload 校验、切分并向量化所有文件，全部成功后一次性写入存储；任一文件失败则存储保持不变。
	Upload(ctx context.Context, files []model.UploadFile) ([]model.DocumentSummary, error)
	// List 返回当前所有文档的摘要。
	List(ctx context.Context) ([]model.DocumentSummary, error)
	// Clear 清空文档存储。
	Clear(ctx context.Context) error
}

type documentService struct {
	processor *pipeline.Processor
	docRepo   repository.DocumentRepository
	uploadCfg config.UploadConfig
	archiver  DocumentArchiver
}

// NewDocumentService 创建一个新的 DocumentService 实例。archiver 可以为 nil。
func NewDocumentService(processor *pipeline.Processor, docRepo repository.DocumentRepository, uploadCfg config.UploadConfig, archiver DocumentArchiver) DocumentService {
	return &documentService{
		processor: processor,
		docRepo:   docRepo,
		uploadCfg: uploadCfg,
		archiver:  archiver,
	}
}

type preparedFile struct {
	file        model.UploadFile
	contentType string
	text        string
}

func (s *documentService) Upload(ctx context.Context, files []model.UploadFile) ([]model.DocumentSummary, error) {
	if len(files) == 0 {
		return nil, errs.Validation("files", "No files uploaded.")
	}
	log.Infof("[DocumentService] 收到上传请求, 文件数: %d", len(files))

	// 1. 在任何网络调用之前校验全部文件
	prepared := make([]preparedFile, 0, len(files))
	for _, f := range files {
		p, err := s.validate(f)
		if err != nil {
			log.Warnf("[DocumentService] 文件校验失败, FileName: %s, Error: %v", f.Name, err)
			return nil, err
		}
		prepared = append(prepared, p)
	}

	// 2. 逐个处理，任何一个失败都放弃整个上传
	docs := make([]*model.Document, 0, len(prepared))
	for _, p := range prepared {
		doc, err := s.processor.Process(ctx, p.file.Name, p.text)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	// 3. 一次性提交
	if err := s.docRepo.Save(ctx, docs...); err != nil {
		log.Errorf("[DocumentService] 保存文档失败: %v", err)
		return nil, fmt.Errorf("failed to save documents: %w", err)
	}

	// 4. 尽力归档原始文件
	if s.archiver != nil {
		for i, p := range prepared {
			if err := s.archiver.Archive(ctx, docs[i].ID, p.file.Name, p.contentType, p.file.Data); err != nil {
				log.Warnf("[DocumentService] 归档原始文件失败, FileName: %s, Error: %v", p.file.Name, err)
			}
		}
	}

	log.Infof("[DocumentService] 上传完成, 新增文档数: %d", len(docs))
	return s.List(ctx)
}

// validate 依次检查大小、类型、扩展名和文本内容。
func (s *documentService) validate(f model.UploadFile) (preparedFile, error) {
	if s.uploadCfg.MaxFileSize > 0 && f.Size > s.uploadCfg.MaxFileSize {
		return preparedFile{}, &errs.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("File exceeds size limit of %s: %s", sizeLabel(s.uploadCfg.MaxFileSize), f.Name),
			Status: http.StatusRequestEntityTooLarge,
		}
	}

	contentType := detectContentType(f)
	if !s.mimeAllowed(contentType) {
		return preparedFile{}, &errs.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("File type not allowed: %s", f.Name),
			Status: http.StatusUnsupportedMediaType,
		}
	}

	if s.extensionBlocked(f.Name) {
		return preparedFile{}, &errs.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("Executable files are not allowed: %s", f.Name),
			Status: http.StatusUnsupportedMediaType,
		}
	}

	text := strings.TrimSpace(strings.ToValidUTF8(string(f.Data), string(utf8.RuneError)))
	if text == "" {
		return preparedFile{}, errs.Validation("file", fmt.Sprintf("File %s is empty or unreadable.", f.Name))
	}
	return preparedFile{file: f, contentType: contentType, text: text}, nil
}

func (s *documentService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.uploadCfg.AllowedMimeTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func (s *documentService) extensionBlocked(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, blocked := range s.uploadCfg.BlockedExtensions {
		if ext != "" && strings.EqualFold(blocked, ext) {
			return true
		}
	}
	return false
}

func (s *documentService) List(ctx context.Context) ([]model.DocumentSummary, error) {
	docs, err := s.docRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return model.Summaries(docs), nil
}

func (s *documentService) Clear(ctx context.Context) error {
	if err := s.docRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if s.archiver != nil {
		if err := s.archiver.Purge(ctx); err != nil {
			log.Warnf("[DocumentService] 清理归档文件失败: %v", err)
		}
	}
	log.Info("[DocumentService] 文档存储已清空")
	return nil
}

// detectContentType 优先使用客户端声明的类型；缺失或为通用二进制类型时按内容嗅探。
func detectContentType(f model.UploadFile) string {
	declared := mediaType(f.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mediaType(mimetype.Detect(f.Data).String())
}

func mediaType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func sizeLabel(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
