package cmd

import (
	"context"

	"github.com/Malowking/parlrag/core/agent"
	"github.com/Malowking/parlrag/core/cache"
	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/conversation"
	"github.com/Malowking/parlrag/core/generator"
	"github.com/Malowking/parlrag/core/grader"
	"github.com/Malowking/parlrag/core/indexer"
	"github.com/Malowking/parlrag/core/query"
	"github.com/Malowking/parlrag/core/retriever"
	"github.com/Malowking/parlrag/core/vector_store"
	"github.com/Malowking/parlrag/core/websearch"
	"github.com/Malowking/parlrag/internal/logic/chat"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/gogf/gf/v2/frame/g"
)

// loadConfig 读取并校验配置
func loadConfig(ctx context.Context) (*config.Config, error) {
	g.Log().Info(ctx, "Validating application configuration...")
	cfg, err := config.Load(ctx, g.Cfg())
	if err != nil {
		return nil, err
	}
	if err = config.ValidateConfiguration(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newIngestor 创建向量库、向量化模型和导入器
func newIngestor(ctx context.Context, cfg *config.Config) (*indexer.Ingestor, vector_store.VectorStore, error) {
	store, err := vector_store.NewVectorStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	ing, err := indexer.NewIngestor(ctx, store, emb, indexer.IngestorConfig{
		Collection:  cfg.VectorStore.Collection,
		ChunkSize:   cfg.Ingest.ChunkSize,
		OverlapSize: cfg.Ingest.OverlapSize,
	})
	if err != nil {
		return nil, nil, err
	}
	return ing, store, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	emb, err := common.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return indexer.NewBatchEmbedder(emb, cfg.Embedding.BatchSize, cfg.Embedding.Concurrency, cfg.Embedding.MaxRetries), nil
}

// newConversationStore memory 或 redis
func newConversationStore(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	if cfg.Conversation.Store == "redis" {
		if err := cache.InitRedis(ctx, cfg.Redis); err != nil {
			return nil, err
		}
		g.Log().Info(ctx, "Using Redis conversation store")
		return conversation.NewRedisStore(cache.GetRedisClient(), cfg.Conversation.TTL), nil
	}
	g.Log().Info(ctx, "Using in-memory conversation store")
	return conversation.NewMemoryStore(cfg.Conversation.TTL), nil
}

// initChat 按配置组装 agent 及其组件，并初始化全局 chat 实例
func initChat(ctx context.Context, cfg *config.Config) (vector_store.VectorStore, error) {
	chatModel, err := common.NewChatModel(ctx, cfg.Chat)
	if err != nil {
		return nil, err
	}
	store, err := vector_store.NewVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err = vector_store.EnsureCollection(ctx, store, cfg.VectorStore.Collection); err != nil {
		return nil, err
	}
	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gr, err := grader.NewGrader(chatModel, cfg.Grader.WithReason, cfg.Grader.Concurrency)
	if err != nil {
		return nil, err
	}

	agentConf := &agent.Config{
		Model:       chatModel,
		Retriever:   retriever.NewRetriever(store, emb, cfg.VectorStore.Collection, cfg.Retriever.TopK),
		Grader:      gr,
		Transformer: query.NewTransformer(chatModel),
		Generator:   generator.NewGenerator(chatModel, nil),
		TopK:        cfg.Retriever.TopK,
		MaxHops:     cfg.Agent.MaxHops,
		Format:      cfg.Agent.Format,
	}
	if cfg.Retriever.HistoryRewrite {
		agentConf.Rewriter = retriever.NewHistoryRewriter(chatModel, true, cfg.Retriever.MaxContextTurns)
	}
	if cfg.Agent.WebSearch && cfg.Tavily.APIKey != "" {
		agentConf.WebSearch = websearch.NewClient(cfg.Tavily)
	}

	a, err := agent.NewAgent(ctx, agentConf)
	if err != nil {
		return nil, err
	}
	convStore, err := newConversationStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	chat.InitChat(a, convStore)

	g.Log().Info(ctx, "✓ All components initialized successfully")
	return store, nil
}
