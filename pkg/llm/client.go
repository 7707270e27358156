// Package llm provides a client for the Mistral chat-completion endpoint.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"laura-rag-go/internal/config"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

const opChat = "chat/completions"

const maxErrorBody = 4 << 10

var validate = validator.New()

// MessageWriter defines an interface for writing WebSocket messages.
// This allows both a standard websocket.Conn and an interceptor to be used.
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 发送一次非流式对话请求，返回助手消息。
	Complete(ctx context.Context, messages []Message, gen *GenerationParams) (Message, error)
	// StreamChatMessages 以流式方式请求对话，将增量内容写入 writer，并返回拼接后的完整回复。
	StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) (string, error)
}

type mistralClient struct {
	cfg    config.MistralConfig
	client *http.Client
}

// NewClient creates a new LLM client for the Mistral API.
func NewClient(cfg config.MistralConfig) Client {
	return &mistralClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices" validate:"required,min=1,dive"`
}

type chatChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content" validate:"required"`
	} `json:"message"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Complete calls the chat completions API and returns the first choice.
func (c *mistralClient) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (Message, error) {
	resp, err := c.do(ctx, c.buildRequest(messages, gen, false))
	if err != nil {
		return Message{}, err
	}
	defer resp.Body.Close()

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Errorf("[LLMClient] 解析 Chat API 响应失败, error: %v", err)
		return Message{}, errs.NewUpstream(opChat, 0, "", fmt.Errorf("failed to decode chat response: %w", err))
	}
	if err := validate.Struct(&payload); err != nil {
		log.Warnf("[LLMClient] Chat API 响应缺少消息内容: %v", err)
		return Message{}, errs.NewUpstream(opChat, 0, "", fmt.Errorf("mistral response missing content: %w", err))
	}

	content := payload.Choices[0].Message.Content
	log.Infof("[LLMClient] 成功获取对话回复, 长度: %d", len(content))
	return Message{Role: "assistant", Content: content}, nil
}

// StreamChatMessages calls the chat completions API with stream=true and forwards each delta.
func (c *mistralClient) StreamChatMessages(ctx context.Context, messages []Message, gen *GenerationParams, writer MessageWriter) (string, error) {
	resp, err := c.do(ctx, c.buildRequest(messages, gen, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var answer strings.Builder
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", errs.NewUpstream(opChat, 0, "", fmt.Errorf("failed to read from stream: %w", err))
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			if data == "[DONE]" {
				break
			}

			var chunk chatStreamChunk
			if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr == nil && len(chunk.Choices) > 0 {
				content := chunk.Choices[0].Delta.Content
				if content != "" {
					answer.WriteString(content)
					if werr := writer.WriteMessage(websocket.TextMessage, []byte(content)); werr != nil {
						return "", fmt.Errorf("failed to write message to websocket: %w", werr)
					}
				}
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if answer.Len() == 0 {
		return "", errs.NewUpstream(opChat, 0, "", errors.New("mistral stream returned no content"))
	}
	return answer.String(), nil
}

func (c *mistralClient) buildRequest(messages []Message, gen *GenerationParams, stream bool) chatRequest {
	reqBody := chatRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
		Stream:   stream,
	}
	if gen != nil {
		reqBody.Temperature = gen.Temperature
		reqBody.TopP = gen.TopP
		reqBody.MaxTokens = gen.MaxTokens
	}
	return reqBody
}

// do 发送请求并处理凭证缺失、网络错误与非 2xx 响应。调用方负责关闭响应体。
func (c *mistralClient) do(ctx context.Context, reqBody chatRequest) (*http.Response, error) {
	if c.cfg.APIKey == "" {
		return nil, &errs.ConfigError{Setting: "mistral.api_key"}
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if reqBody.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	log.Infof("[LLMClient] 调用 Chat API, model: %s, messages: %d, stream: %t", reqBody.Model, len(reqBody.Messages), reqBody.Stream)
	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[LLMClient] 调用 Chat API 失败, error: %v", err)
		return nil, errs.NewUpstream(opChat, 0, "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Errorf("[LLMClient] Chat API 返回非 2xx 状态码: %s", resp.Status)
		return nil, errs.NewUpstream(opChat, resp.StatusCode, string(body),
			fmt.Errorf("mistral api error: %d", resp.StatusCode))
	}
	return resp, nil
}
