// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"laura-rag-go/internal/config"
	"laura-rag-go/internal/handler"
	"laura-rag-go/internal/middleware"
	"laura-rag-go/internal/pipeline"
	"laura-rag-go/internal/repository"
	"laura-rag-go/internal/service"
	"laura-rag-go/pkg/database"
	"laura-rag-go/pkg/embedding"
	"laura-rag-go/pkg/llm"
	"laura-rag-go/pkg/log"
	"laura-rag-go/pkg/storage"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")
	for _, w := range cfg.Warnings() {
		log.Warnw("配置检查", "warning", w)
	}

	initCtx, cancelInit := context.WithCancel(context.Background())
	defer cancelInit()

	// 3. 初始化文档存储，整个进程只有这一个实例
	docRepo := newDocumentRepository(initCtx, cfg)

	// 4. 可选：原始文件归档
	var archiver service.DocumentArchiver
	if cfg.MinIO.Enabled {
		minioArchiver, err := storage.NewMinIOArchiver(initCtx, cfg.MinIO)
		if err != nil {
			log.Warnf("MinIO 初始化失败，上传文件将不会归档: %v", err)
		} else {
			archiver = minioArchiver
		}
	}

	// 5. 初始化 Service (依赖注入)
	embeddingClient := embedding.NewClient(cfg.Mistral)
	llmClient := llm.NewClient(cfg.Mistral)
	processor := pipeline.NewProcessor(embeddingClient, cfg.RAG)
	searchService := service.NewSearchService(docRepo, embeddingClient, cfg.RAG)
	documentService := service.NewDocumentService(processor, docRepo, cfg.Upload, archiver)
	chatService := service.NewChatService(searchService, llmClient, cfg.RAG)

	// 5.1 初始化导入 seed 目录
	if cfg.Upload.SeedDir != "" {
		go seedDocuments(initCtx, cfg.Upload.SeedDir, documentService)
	}

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := setupRouter(cfg, documentService, chatService, searchService)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infow("Laura API listening", "port", cfg.Server.Port, "model", cfg.Mistral.ChatModel, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")
	cancelInit()

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// newDocumentRepository 按配置选择存储后端；Redis 不可用时直接退出。
func newDocumentRepository(ctx context.Context, cfg config.Config) repository.DocumentRepository {
	if cfg.Store.Backend != "redis" {
		log.Info("使用进程内文档存储，重启后文档将丢失")
		return repository.NewDocumentRepository()
	}
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	return repository.NewRedisDocumentRepository(rdb, cfg.Redis.KeyPrefix)
}

// setupRouter 注册中间件与全部路由。
func setupRouter(cfg config.Config, documentService service.DocumentService, chatService service.ChatService, searchService service.SearchService) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.MaxMultipartMemory = cfg.Upload.MaxFileSize
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(), middleware.BodyLimit(cfg.Server.RequestBodyLimit))

	healthHandler := handler.NewHealthHandler(cfg.Mistral.ChatModel)
	documentHandler := handler.NewDocumentHandler(documentService, cfg.Upload.MaxFileSize)
	chatHandler := handler.NewChatHandler(chatService)
	searchHandler := handler.NewSearchHandler(searchService)

	api := r.Group("/api")
	{
		api.GET("/health", healthHandler.Check)

		documents := api.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.POST("", documentHandler.Upload)
			documents.DELETE("", documentHandler.Clear)
		}

		chat := api.Group("/chat")
		{
			chat.POST("", chatHandler.Chat)
			chat.GET("/ws", chatHandler.Stream)
		}

		api.GET("/search", searchHandler.Search)
	}
	return r
}
