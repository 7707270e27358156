package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"laura-rag-go/internal/model"
	"laura-rag-go/internal/service"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

// SearchHandler 提供检索预览：返回一次对话会使用的上下文分块及其得分。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 是处理检索预览请求的 Gin 处理函数。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到检索请求, query: %s", query)

	if query == "" {
		log.Warnf("[SearchHandler] 检索请求失败: query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"message": "Query parameter is required."})
		return
	}
	// topK 缺失或非法时使用配置值
	topK, err := strconv.Atoi(c.DefaultQuery("topK", "0"))
	if err != nil || topK < 0 {
		topK = 0
	}

	results, err := h.searchService.Search(c.Request.Context(), query, topK)
	if err != nil {
		log.Errorf("[SearchHandler] 检索服务返回错误, error: %v", err)
		c.JSON(errs.HTTPStatus(err), gin.H{"message": "Search request failed."})
		return
	}

	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.Result())
	}
	log.Infof("[SearchHandler] 检索成功, query: '%s', 返回 %d 条结果", query, len(out))
	c.JSON(http.StatusOK, gin.H{"results": out})
}
