package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 代表一条对话消息，由调用方随请求提供，服务端不保存。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply 是一次 RAG 对话的结果：助手回复以及引用列表。
type ChatReply struct {
	Message   ChatMessage `json:"message"`
	Citations []string    `json:"citations"`
}
