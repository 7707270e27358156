package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laura-rag-go/internal/config"
	"laura-rag-go/internal/model"
	"laura-rag-go/internal/pipeline"
	"laura-rag-go/internal/repository"
	"laura-rag-go/internal/service"
	"laura-rag-go/pkg/llm"
)

type constEmbedder struct{}

func (constEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (e constEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func newDocumentService(cfg config.Config) service.DocumentService {
	return service.NewDocumentService(pipeline.NewProcessor(constEmbedder{}, cfg.RAG), repository.NewDocumentRepository(), cfg.Upload, nil)
}

func TestSeedDocuments_ImportsOnceAndSkipsInvalid(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.md"), []byte("# Welcome\nhello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "install.sh"), []byte("echo hi"), 0o644))

	docs := newDocumentService(cfg)

	assert.Equal(t, 1, seedDocuments(context.Background(), dir, docs))
	assert.Equal(t, 0, seedDocuments(context.Background(), dir, docs))

	list, err := docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "welcome.md", list[0].Name)
}

func TestSeedDocuments_MissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, 0, seedDocuments(context.Background(), filepath.Join(t.TempDir(), "nope"), newDocumentService(cfg)))
}

type nopChat struct{}

func (nopChat) Chat(context.Context, []model.ChatMessage) (*model.ChatReply, error) {
	return &model.ChatReply{Citations: []string{}}, nil
}

func (nopChat) StreamChat(context.Context, []model.ChatMessage, llm.MessageWriter) (*model.ChatReply, error) {
	return &model.ChatReply{Citations: []string{}}, nil
}

func TestSetupRouter_RegistersRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	repo := repository.NewDocumentRepository()
	search := service.NewSearchService(repo, constEmbedder{}, cfg.RAG)
	r := setupRouter(cfg, newDocumentService(cfg), nopChat{}, search)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","model":"`+cfg.Mistral.ChatModel+`"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?query=hi", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())
}
