package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gcfg"
)

// Config 应用配置，对应 config.yaml 的各个顶层节点
type Config struct {
	Chat         ChatConfig
	Embedding    EmbeddingConfig
	VectorStore  VectorStoreConfig
	Milvus       MilvusConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Conversation ConversationConfig
	Ingest       IngestConfig
	Retriever    RetrieverConfig
	Grader       GraderConfig
	Agent        AgentConfig
	Tavily       TavilyConfig
	Scraper      ScraperConfig
	Minio        MinioConfig
}

// ChatConfig 对话模型配置
type ChatConfig struct {
	Provider    string  `json:"provider"` // openai / qwen
	APIKey      string  `json:"apiKey"`
	BaseURL     string  `json:"baseURL"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
}

// EmbeddingConfig 向量化模型配置
type EmbeddingConfig struct {
	APIKey      string `json:"apiKey"`
	BaseURL     string `json:"baseURL"`
	Model       string `json:"model"`
	Dimensions  int    `json:"dimensions"`
	BatchSize   int    `json:"batchSize"`   // 每批文本数
	Concurrency int    `json:"concurrency"` // 并发批次数
	MaxRetries  int    `json:"maxRetries"`
}

// VectorStoreConfig 向量库选择
type VectorStoreConfig struct {
	Type       string `json:"type"`       // milvus / pgvector / memory
	Collection string `json:"collection"` // 逻辑集合名（索引名）
}

type MilvusConfig struct {
	Address  string `json:"address"`
	Database string `json:"database"`
	Dim      int    `json:"dim"`
}

type PostgresConfig struct {
	DSN    string `json:"dsn"`
	Schema string `json:"schema"`
	Dim    int    `json:"dim"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"poolSize"`
}

// ConversationConfig 会话存储配置
type ConversationConfig struct {
	Store string        `json:"store"` // memory / redis
	TTL   time.Duration `json:"ttl"`
}

// IngestConfig 文档导入配置
type IngestConfig struct {
	Source      string   `json:"source"`
	ChunkSize   int      `json:"chunkSize"`
	OverlapSize int      `json:"overlapSize"`
	Extensions  []string `json:"extensions"`
}

// RetrieverConfig 检索配置
type RetrieverConfig struct {
	TopK            int  `json:"topK"`
	HistoryRewrite  bool `json:"historyRewrite"`  // 是否启用基于历史的问题改写
	MaxContextTurns int  `json:"maxContextTurns"` // 改写时最多使用的历史轮数
}

// GraderConfig 相关性评分配置
type GraderConfig struct {
	WithReason  bool `json:"withReason"`
	Concurrency int  `json:"concurrency"`
}

// AgentConfig 编排配置
type AgentConfig struct {
	MaxHops   int  `json:"maxHops"`
	Format    bool `json:"format"`    // 是否启用最终格式化
	WebSearch bool `json:"webSearch"` // 是否向模型暴露网络搜索工具
}

type TavilyConfig struct {
	APIKey     string `json:"apiKey"`
	BaseURL    string `json:"baseURL"`
	MaxResults int    `json:"maxResults"`
}

type ScraperConfig struct {
	BaseURL   string `json:"baseURL"`
	OutputDir string `json:"outputDir"`
	BatchSize int    `json:"batchSize"` // 每个 steno 分片包含的发言数
}

type MinioConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    bool   `json:"useSSL"`
}

// Load 从 gcfg 读取配置并填充默认值
func Load(ctx context.Context, c *gcfg.Config) (*Config, error) {
	if c == nil {
		c = g.Cfg()
	}
	cfg := &Config{}
	sections := []struct {
		key    string
		target any
	}{
		{"chat", &cfg.Chat},
		{"embedding", &cfg.Embedding},
		{"vectorStore", &cfg.VectorStore},
		{"milvus", &cfg.Milvus},
		{"postgres", &cfg.Postgres},
		{"redis", &cfg.Redis},
		{"ingest", &cfg.Ingest},
		{"retriever", &cfg.Retriever},
		{"grader", &cfg.Grader},
		{"tavily", &cfg.Tavily},
		{"scraper", &cfg.Scraper},
		{"minio", &cfg.Minio},
	}
	for _, s := range sections {
		v, err := c.Get(ctx, s.key)
		if err != nil {
			return nil, fmt.Errorf("read config section %s: %w", s.key, err)
		}
		if v == nil || v.IsNil() {
			continue
		}
		if err := v.Scan(s.target); err != nil {
			return nil, fmt.Errorf("scan config section %s: %w", s.key, err)
		}
	}

	// 布尔默认值为 true 的配置项单独读取
	cfg.Agent.MaxHops = c.MustGet(ctx, "agent.maxHops", 10).Int()
	cfg.Agent.Format = c.MustGet(ctx, "agent.format", true).Bool()
	cfg.Agent.WebSearch = c.MustGet(ctx, "agent.webSearch", true).Bool()

	cfg.Ingest.OverlapSize = c.MustGet(ctx, "ingest.overlapSize", 200).Int()

	cfg.Conversation.Store = c.MustGet(ctx, "conversation.store", "memory").String()
	cfg.Conversation.TTL = c.MustGet(ctx, "conversation.ttl", "24h").Duration()

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = "openai"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "gpt-4o-mini"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 30
	}
	if cfg.Embedding.Concurrency <= 0 {
		cfg.Embedding.Concurrency = 3
	}
	if cfg.Embedding.MaxRetries <= 0 {
		cfg.Embedding.MaxRetries = 5
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "milvus"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "Sessions"
	}
	if cfg.Milvus.Database == "" {
		cfg.Milvus.Database = "default"
	}
	if cfg.Milvus.Dim <= 0 {
		cfg.Milvus.Dim = 1536
	}
	if cfg.Postgres.Schema == "" {
		cfg.Postgres.Schema = "public"
	}
	if cfg.Postgres.Dim <= 0 {
		cfg.Postgres.Dim = cfg.Milvus.Dim
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Redis.PoolSize <= 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Conversation.TTL <= 0 {
		cfg.Conversation.TTL = 24 * time.Hour
	}
	if cfg.Ingest.Source == "" {
		cfg.Ingest.Source = "data"
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.OverlapSize < 0 || cfg.Ingest.OverlapSize >= cfg.Ingest.ChunkSize {
		cfg.Ingest.OverlapSize = cfg.Ingest.ChunkSize / 5
	}
	if len(cfg.Ingest.Extensions) == 0 {
		cfg.Ingest.Extensions = []string{".txt", ".json"}
	}
	if cfg.Retriever.TopK <= 0 {
		cfg.Retriever.TopK = 6
	}
	if cfg.Retriever.MaxContextTurns <= 0 {
		cfg.Retriever.MaxContextTurns = 3
	}
	if cfg.Grader.Concurrency <= 0 {
		cfg.Grader.Concurrency = 1
	}
	if cfg.Agent.MaxHops <= 0 {
		cfg.Agent.MaxHops = 10
	}
	if cfg.Tavily.BaseURL == "" {
		cfg.Tavily.BaseURL = "https://api.tavily.com"
	}
	if cfg.Tavily.MaxResults <= 0 {
		cfg.Tavily.MaxResults = 3
	}
	if cfg.Scraper.BaseURL == "" {
		cfg.Scraper.BaseURL = "https://data.strazha.bg/sessions/"
	}
	if cfg.Scraper.OutputDir == "" {
		cfg.Scraper.OutputDir = cfg.Ingest.Source
	}
	if cfg.Scraper.BatchSize <= 0 {
		cfg.Scraper.BatchSize = 5
	}
}

// ValidateConfiguration validates all required configuration items
func ValidateConfiguration(ctx context.Context, cfg *Config) error {
	var missingConfigs []string
	var warnings []string

	// 验证 Chat 配置
	if cfg.Chat.APIKey == "" {
		missingConfigs = append(missingConfigs, "chat.apiKey")
	}
	if cfg.Chat.Provider != "openai" && cfg.Chat.Provider != "qwen" {
		missingConfigs = append(missingConfigs, fmt.Sprintf("chat.provider (unsupported: %s)", cfg.Chat.Provider))
	}

	// 验证 Embedding 配置
	if cfg.Embedding.APIKey == "" {
		missingConfigs = append(missingConfigs, "embedding.apiKey")
	}
	if cfg.Embedding.BaseURL == "" {
		warnings = append(warnings, "embedding.baseURL is not set, using provider default")
	}

	// 验证向量库配置
	switch cfg.VectorStore.Type {
	case "milvus":
		if cfg.Milvus.Address == "" {
			missingConfigs = append(missingConfigs, "milvus.address")
		}
	case "pgvector":
		if cfg.Postgres.DSN == "" {
			missingConfigs = append(missingConfigs, "postgres.dsn")
		}
	case "memory":
		warnings = append(warnings, "vectorStore.type is memory, ingested chunks are lost on restart")
	default:
		missingConfigs = append(missingConfigs, fmt.Sprintf("vectorStore.type (unsupported: %s)", cfg.VectorStore.Type))
	}

	if cfg.Agent.WebSearch && cfg.Tavily.APIKey == "" {
		warnings = append(warnings, "tavily.apiKey is not set, web search tool disabled")
	}

	// 输出警告信息
	if len(warnings) > 0 {
		g.Log().Warningf(ctx, "Configuration warnings:\n- %s", strings.Join(warnings, "\n- "))
	}

	// 检查是否有缺失的必需配置
	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configuration items:\n- %s\n\nPlease check your config.yaml file and ensure all required settings are properly configured", strings.Join(missingConfigs, "\n- "))
	}

	g.Log().Info(ctx, "✓ All required configuration items are present")
	return nil
}
