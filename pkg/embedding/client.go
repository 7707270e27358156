// Package embedding provides a client for the Mistral embeddings endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"laura-rag-go/internal/config"
	"laura-rag-go/pkg/errs"
	"laura-rag-go/pkg/log"
)

const opEmbeddings = "embeddings"

// maxErrorBody 限制记录的上游错误响应体大小。
const maxErrorBody = 4 << 10

var validate = validator.New()

// Client defines the interface for an embedding client.
type Client interface {
	// EmbedTexts 一次性批量请求所有文本的向量，返回顺序与输入一致。
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedText 请求单条文本的向量。
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type mistralClient struct {
	cfg    config.MistralConfig
	client *http.Client
}

// NewClient creates a new embedding client for the Mistral API.
func NewClient(cfg config.MistralConfig) Client {
	return &mistralClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data" validate:"required,min=1,dive"`
}

type embeddingData struct {
	Index     *int      `json:"index"`
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
}

// EmbedText 请求单条文本的向量。
func (c *mistralClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts calls the embeddings API once with all texts batched.
func (c *mistralClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errs.Validation("texts", "no texts provided for embeddings")
	}
	if c.cfg.APIKey == "" {
		return nil, &errs.ConfigError{Setting: "mistral.api_key"}
	}

	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, inputs: %d", c.cfg.EmbedModel, len(texts))
	reqBytes, err := json.Marshal(embeddingRequest{Model: c.cfg.EmbedModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, errs.NewUpstream(opEmbeddings, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Errorf("[EmbeddingClient] Embedding API 返回非 2xx 状态码: %s", resp.Status)
		return nil, errs.NewUpstream(opEmbeddings, resp.StatusCode, string(body),
			fmt.Errorf("mistral api error: %d", resp.StatusCode))
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		log.Errorf("[EmbeddingClient] 解析 Embedding API 响应失败, error: %v", err)
		return nil, errs.NewUpstream(opEmbeddings, 0, "", fmt.Errorf("failed to decode embedding response: %w", err))
	}

	vectors, err := embeddingResp.vectors(len(texts))
	if err != nil {
		log.Warnf("[EmbeddingClient] Embedding API 返回了无效的向量数据: %v", err)
		return nil, errs.NewUpstream(opEmbeddings, 0, "", err)
	}

	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取 %d 个向量, 维度: %d", len(vectors), len(vectors[0]))
	return vectors, nil
}

// vectors 校验响应结构并按输入顺序返回向量。
// 若每一项都带有 index 字段则按 index 排列，否则按返回顺序。
func (r *embeddingResponse) vectors(want int) ([][]float32, error) {
	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("invalid embedding response from mistral: %w", err)
	}
	if len(r.Data) != want {
		return nil, fmt.Errorf("invalid embedding response from mistral: got %d vectors for %d inputs", len(r.Data), want)
	}

	out := make([][]float32, want)
	indexed := true
	for _, d := range r.Data {
		if d.Index == nil {
			indexed = false
			break
		}
	}
	for i, d := range r.Data {
		pos := i
		if indexed {
			pos = *d.Index
			if pos < 0 || pos >= want || out[pos] != nil {
				return nil, fmt.Errorf("invalid embedding response from mistral: bad index %d", pos)
			}
		}
		out[pos] = d.Embedding
	}

	dim := len(out[0])
	for _, v := range out {
		if len(v) != dim {
			return nil, fmt.Errorf("invalid embedding response from mistral: mixed dimensions %d and %d", dim, len(v))
		}
	}
	return out, nil
}
