// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler 返回服务状态与当前使用的对话模型。
type HealthHandler struct {
	chatModel string
}

// NewHealthHandler 创建一个新的 HealthHandler。
func NewHealthHandler(chatModel string) *HealthHandler {
	return &HealthHandler{chatModel: chatModel}
}

// Check 处理健康检查请求。
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": h.chatModel})
}
