// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// 允许使用的 Mistral 对话模型，其他取值回退到 DefaultChatModel。
var ChatModels = map[string]struct{}{
	"mistral-small":  {},
	"mistral-medium": {},
	"mistral-large":  {},
}

const (
	DefaultChatModel  = "mistral-small"
	DefaultEmbedModel = "mistral-embed"

	// DefaultSystemPrompt 是 RAG 对话的基础系统指令，检索到的上下文会追加在其后。
	DefaultSystemPrompt = "You are Laura, a cosmic dream companion. Use the provided sources to answer questions when relevant. " +
		"If sources are provided, cite them exactly in brackets like [DocName • chunk 3]. If sources are not relevant, answer normally."
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Mistral MistralConfig `mapstructure:"mistral"`
	RAG     RAGConfig     `mapstructure:"rag"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MinIO   MinIOConfig   `mapstructure:"minio"`

	warnings []string
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	Mode             string        `mapstructure:"mode"`
	RequestBodyLimit int64         `mapstructure:"request_body_limit"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// MistralConfig 存储 Mistral API 的访问配置，embedding 与 chat 共用同一凭证。
type MistralConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	ChatModel  string        `mapstructure:"chat_model"`
	EmbedModel string        `mapstructure:"embed_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RAGConfig 存储检索增强生成的参数。
type RAGConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`
	TopK                int     `mapstructure:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	Temperature         float64 `mapstructure:"temperature"`
	SystemPrompt        string  `mapstructure:"system_prompt"`
}

// UploadConfig 存储文档上传的限制。
// SeedDir 中的文本文件会在启动时导入，已存在同名文档的文件会被跳过；为空时不导入。
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	AllowedMimeTypes  []string `mapstructure:"allowed_mime_types"`
	BlockedExtensions []string `mapstructure:"blocked_extensions"`
	SeedDir           string   `mapstructure:"seed_dir"`
}

// StoreConfig 选择文档存储的后端：memory（默认，进程内）或 redis。
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于归档上传的原始文件。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// Warnings 返回加载配置时发现的非致命问题，由调用方在日志初始化后输出。
func (c Config) Warnings() []string {
	return c.warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_body_limit", 1<<20)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("mistral.api_key", "")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai/v1")
	v.SetDefault("mistral.chat_model", DefaultChatModel)
	v.SetDefault("mistral.embed_model", DefaultEmbedModel)
	v.SetDefault("mistral.timeout", 60*time.Second)

	v.SetDefault("rag.chunk_size", 800)
	v.SetDefault("rag.chunk_overlap", 100)
	v.SetDefault("rag.top_k", 3)
	v.SetDefault("rag.similarity_threshold", 0.2)
	v.SetDefault("rag.temperature", 0.4)
	v.SetDefault("rag.system_prompt", DefaultSystemPrompt)

	v.SetDefault("upload.max_file_size", 2<<20)
	v.SetDefault("upload.allowed_mime_types", []string{"text/plain", "text/markdown"})
	v.SetDefault("upload.blocked_extensions", []string{".exe", ".sh"})
	v.SetDefault("upload.seed_dir", "")

	v.SetDefault("store.backend", "memory")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "laura")

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "laura-documents")
}

// Load 读取 .env、配置文件与环境变量并返回配置。配置文件不存在时仅使用默认值和环境变量。
func Load(configPath string) (Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LAURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容原有的环境变量名，按顺序取第一个非空值
	if err := v.BindEnv("mistral.api_key", "LAURA_MISTRAL_API_KEY", "MISTRAL_API_KEY", "VITE_MISTRAL_API_KEY"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("mistral.chat_model", "LAURA_MISTRAL_CHAT_MODEL", "MISTRAL_MODEL", "VITE_MISTRAL_MODEL"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("server.port", "LAURA_SERVER_PORT", "PORT"); err != nil {
		return Config{}, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize 修正不合法的取值并记录警告。
func (c *Config) normalize() {
	if _, ok := ChatModels[c.Mistral.ChatModel]; !ok {
		fallback := legacyChatModel()
		c.warnings = append(c.warnings, fmt.Sprintf("unsupported chat model %q, falling back to %s", c.Mistral.ChatModel, fallback))
		c.Mistral.ChatModel = fallback
	}
	if c.Mistral.APIKey == "" {
		c.warnings = append(c.warnings, "Mistral API key missing. Set MISTRAL_API_KEY (preferred) or VITE_MISTRAL_API_KEY.")
	}
	c.Mistral.BaseURL = strings.TrimRight(c.Mistral.BaseURL, "/")
	if c.RAG.ChunkSize <= 0 {
		c.warnings = append(c.warnings, fmt.Sprintf("invalid rag.chunk_size %d, using 800", c.RAG.ChunkSize))
		c.RAG.ChunkSize = 800
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.warnings = append(c.warnings, fmt.Sprintf("invalid rag.chunk_overlap %d, using 0", c.RAG.ChunkOverlap))
		c.RAG.ChunkOverlap = 0
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 3
	}
	if c.RAG.SystemPrompt == "" {
		c.RAG.SystemPrompt = DefaultSystemPrompt
	}
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend != "memory" && c.Store.Backend != "redis" {
		c.warnings = append(c.warnings, fmt.Sprintf("unknown store.backend %q, using memory", c.Store.Backend))
		c.Store.Backend = "memory"
	}
}

// legacyChatModel 按 MISTRAL_MODEL、VITE_MISTRAL_MODEL 的顺序返回第一个受支持的模型，都不可用时返回默认模型。
func legacyChatModel() string {
	for _, key := range []string{"MISTRAL_MODEL", "VITE_MISTRAL_MODEL"} {
		if _, ok := ChatModels[os.Getenv(key)]; ok {
			return os.Getenv(key)
		}
	}
	return DefaultChatModel
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
