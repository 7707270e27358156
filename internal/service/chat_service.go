package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"laura-rag-go/internal/config"
	"laura-rag-go/internal/model"
	"laura-rag-go/pkg/llm"
	"laura-rag-go/pkg/log"
)

// ChatService 定义了 RAG 对话编排的接口。服务端不保存任何会话状态，
// 每次调用都是一次完整的“检索-生成”流程。
type ChatService interface {
	// Chat 检索上下文并请求一次完整回复。
	Chat(ctx context.Context, messages []model.ChatMessage) (*model.ChatReply, error)
	// StreamChat 与 Chat 使用相同的检索与提示词，但把回复增量以 {"chunk": ...} 帧写入 writer。
	StreamChat(ctx context.Context, messages []model.ChatMessage, writer llm.MessageWriter) (*model.ChatReply, error)
}

type chatService struct {
	searchService SearchService
	llmClient     llm.Client
	ragCfg        config.RAGConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(searchService SearchService, llmClient llm.Client, ragCfg config.RAGConfig) ChatService {
	return &chatService{
		searchService: searchService,
		llmClient:     llmClient,
		ragCfg:        ragCfg,
	}
}

func (s *chatService) Chat(ctx context.Context, messages []model.ChatMessage) (*model.ChatReply, error) {
	llmMsgs, citations, err := s.prepare(ctx, messages)
	if err != nil {
		return nil, err
	}

	reply, err := s.llmClient.Complete(ctx, llmMsgs, s.buildGenerationParams())
	if err != nil {
		log.Errorf("[ChatService] 对话补全失败: %v", err)
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	log.Infof("[ChatService] 对话完成, 回复长度: %d, 引用数: %d", len(reply.Content), len(citations))
	return &model.ChatReply{
		Message:   model.ChatMessage{Role: model.RoleAssistant, Content: reply.Content},
		Citations: citations,
	}, nil
}

func (s *chatService) StreamChat(ctx context.Context, messages []model.ChatMessage, writer llm.MessageWriter) (*model.ChatReply, error) {
	llmMsgs, citations, err := s.prepare(ctx, messages)
	if err != nil {
		return nil, err
	}

	interceptor := &chunkWriter{writer: writer}
	answer, err := s.llmClient.StreamChatMessages(ctx, llmMsgs, s.buildGenerationParams(), interceptor)
	if err != nil {
		log.Errorf("[ChatService] 流式对话失败: %v", err)
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}

	log.Infof("[ChatService] 流式对话完成, 回复长度: %d, 引用数: %d", len(answer), len(citations))
	return &model.ChatReply{
		Message:   model.ChatMessage{Role: model.RoleAssistant, Content: answer},
		Citations: citations,
	}, nil
}

// prepare 执行检索并构造发往模型的消息：系统消息在前，调用方的消息序列原样跟随。
func (s *chatService) prepare(ctx context.Context, messages []model.ChatMessage) ([]llm.Message, []string, error) {
	citations := []string{}
	contextText := ""

	// 1. 从后往前找到最近一条用户消息；没有则跳过检索
	if query, ok := lastUserMessage(messages); ok {
		results, err := s.searchService.Search(ctx, query, s.ragCfg.TopK)
		if err != nil {
			log.Errorf("[ChatService] 检索上下文失败: %v", err)
			return nil, nil, fmt.Errorf("failed to retrieve context: %w", err)
		}
		for _, r := range results {
			citations = append(citations, r.Citation())
		}
		contextText = buildContextText(results)
	}

	systemPrompt := s.buildSystemPrompt(contextText)
	llmMsgs := make([]llm.Message, 0, len(messages)+1)
	llmMsgs = append(llmMsgs, llm.Message{Role: model.RoleSystem, Content: systemPrompt})
	for _, m := range messages {
		llmMsgs = append(llmMsgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return llmMsgs, citations, nil
}

func lastUserMessage(messages []model.ChatMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}

// buildContextText 把检索结果拼成带来源标注的上下文块，块之间空一行。
func buildContextText(results []model.ScoredChunk) string {
	if len(results) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Source: [%s]\n%s", r.Citation(), r.Chunk.Text))
	}
	return strings.Join(blocks, "\n\n")
}

func (s *chatService) buildSystemPrompt(contextText string) string {
	prompt := s.ragCfg.SystemPrompt
	if prompt == "" {
		prompt = config.DefaultSystemPrompt
	}
	if contextText == "" {
		return prompt
	}
	return prompt + "\n\n" + contextText
}

func (s *chatService) buildGenerationParams() *llm.GenerationParams {
	t := s.ragCfg.Temperature
	return &llm.GenerationParams{Temperature: &t}
}

// chunkWriter 把模型的原始增量包装成 {"chunk":"..."} 再写出。
type chunkWriter struct {
	writer llm.MessageWriter
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *chunkWriter) WriteMessage(messageType int, data []byte) error {
	b, err := json.Marshal(map[string]string{"chunk": string(data)})
	if err != nil {
		return err
	}
	return w.writer.WriteMessage(messageType, b)
}
