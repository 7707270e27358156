package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"laura-rag-go/internal/model"
	"laura-rag-go/internal/service"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

const (
	msgPayloadRequired = "Messages payload is required."
	msgContentRequired = "Each message must include string content."
	msgChatFailed      = "Chat request failed."
	msgBodyTooLarge    = "Request body too large."
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// chatRequest 是 /api/chat 与 WebSocket 消息的请求体。
type chatRequest struct {
	Messages []chatMessage `json:"messages" binding:"required"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// toModel 校验每条消息都带有字符串内容，并转换为领域模型。
func (r *chatRequest) toModel() ([]model.ChatMessage, error) {
	msgs := make([]model.ChatMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Content == nil {
			return nil, errs.Validation("messages", msgContentRequired)
		}
		msgs = append(msgs, model.ChatMessage{Role: m.Role, Content: *m.Content})
	}
	return msgs, nil
}

// bindError 把请求体解析错误转换为对外的状态码与提示。
func bindError(err error) (int, string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, msgBodyTooLarge
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && strings.HasSuffix(typeErr.Field, "content") {
		return http.StatusBadRequest, msgContentRequired
	}
	return http.StatusBadRequest, msgPayloadRequired
}

// ChatHandler 负责处理对话请求，包括普通 HTTP 与 WebSocket 流式两种方式。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat 处理一次完整的 RAG 对话请求。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, msg := bindError(err)
		c.JSON(status, gin.H{"message": msg})
		return
	}
	messages, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgContentRequired})
		return
	}

	reply, err := h.chatService.Chat(c.Request.Context(), messages)
	if err != nil {
		log.Errorw("Chat failed", "error", err)
		c.JSON(errs.HTTPStatus(err), gin.H{"message": msgChatFailed})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Stream 处理一个传入的 WebSocket 连接。每条客户端消息都是一次独立的对话请求。
func (h *ChatHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, clientIP: %s", c.ClientIP())

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			break
		}

		messages, err := parseStreamRequest(message)
		if err != nil {
			writeJSON(conn, gin.H{"error": err.Error()})
			writeJSON(conn, completion(nil))
			continue
		}

		reply, err := h.chatService.StreamChat(c.Request.Context(), messages, conn)
		if err != nil {
			log.Errorw("Chat failed", "error", err, "transport", "websocket")
			writeJSON(conn, gin.H{"error": msgChatFailed})
			writeJSON(conn, completion(nil))
			continue
		}
		writeJSON(conn, completion(reply.Citations))
	}
}

// parseStreamRequest 使用与 HTTP 接口相同的规则解析 WebSocket 消息。
func parseStreamRequest(data []byte) ([]model.ChatMessage, error) {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_, msg := bindError(err)
		return nil, errors.New(msg)
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return nil, errors.New(msgPayloadRequired)
	}
	messages, err := req.toModel()
	if err != nil {
		return nil, errors.New(msgContentRequired)
	}
	return messages, nil
}

// completion 构造流结束通知，出错时引用为空列表。
func completion(citations []string) gin.H {
	if citations == nil {
		citations = []string{}
	}
	return gin.H{
		"type":      "completion",
		"status":    "finished",
		"citations": citations,
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Errorf("序列化 WebSocket 消息失败: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
	}
}
