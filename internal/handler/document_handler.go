package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"laura-rag-go/internal/model"
	"laura-rag-go/internal/service"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService  service.DocumentService
	maxFileSize int64
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		docService:  docService,
		maxFileSize: maxFileSize,
	}
}

// List 处理获取文档摘要列表的请求。
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docService.List(c.Request.Context())
	if err != nil {
		log.Error("List documents failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list documents."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Upload 处理 multipart 字段 files 中的一个或多个文本文件。
func (h *DocumentHandler) Upload(c *gin.Context) {
	var headers []*multipart.FileHeader
	form, err := c.MultipartForm()
	if err == nil {
		headers = form.File["files"]
	} else if !errors.Is(err, http.ErrNotMultipart) && !errors.Is(err, http.ErrMissingBoundary) {
		log.Warnf("解析 multipart 表单失败: %v", err)
	}

	files := make([]model.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := h.readFile(fh)
		if err != nil {
			log.Error("Upload failed", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to process documents."})
			return
		}
		files = append(files, f)
	}

	docs, err := h.docService.Upload(c.Request.Context(), files)
	if err != nil {
		var validErr *errs.ValidationError
		if errors.As(err, &validErr) {
			c.JSON(errs.HTTPStatus(err), gin.H{"message": validErr.Reason})
			return
		}
		log.Error("Upload failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to process documents."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// readFile 读取上传文件；超过大小限制的文件不读取内容，交由校验拒绝。
func (h *DocumentHandler) readFile(fh *multipart.FileHeader) (model.UploadFile, error) {
	f := model.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		return f, nil
	}

	src, err := fh.Open()
	if err != nil {
		return f, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	f.Data, err = io.ReadAll(src)
	if err != nil {
		return f, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return f, nil
}

// Clear 处理清空文档存储的请求。
func (h *DocumentHandler) Clear(c *gin.Context) {
	if err := h.docService.Clear(c.Request.Context()); err != nil {
		log.Error("Clear documents failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear documents."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
