package config

import (
	"context"
	"testing"
	"time"

	"github.com/gogf/gf/v2/os/gcfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, content string) *gcfg.Config {
	t.Helper()
	adapter, err := gcfg.NewAdapterContent(content)
	require.NoError(t, err)
	return gcfg.NewWithAdapter(adapter)
}

func TestLoad_Defaults(t *testing.T) {
	ctx := context.Background()
	cfg, err := Load(ctx, newTestConfig(t, `
chat:
  apiKey: "sk-test"
`))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Chat.Provider)
	assert.Equal(t, "sk-test", cfg.Chat.APIKey)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.OverlapSize)
	assert.Equal(t, []string{".txt", ".json"}, cfg.Ingest.Extensions)
	assert.Equal(t, 6, cfg.Retriever.TopK)
	assert.False(t, cfg.Retriever.HistoryRewrite)
	assert.Equal(t, 10, cfg.Agent.MaxHops)
	assert.True(t, cfg.Agent.Format)
	assert.Equal(t, 1, cfg.Grader.Concurrency)
	assert.Equal(t, "Sessions", cfg.VectorStore.Collection)
	assert.Equal(t, "memory", cfg.Conversation.Store)
	assert.Equal(t, 24*time.Hour, cfg.Conversation.TTL)
	assert.Equal(t, 30, cfg.Embedding.BatchSize)
}

func TestLoad_Overrides(t *testing.T) {
	ctx := context.Background()
	cfg, err := Load(ctx, newTestConfig(t, `
ingest:
  chunkSize: 500
  overlapSize: 50
retriever:
  topK: 10
  historyRewrite: true
agent:
  maxHops: 4
  format: false
conversation:
  store: redis
  ttl: 30m
vectorStore:
  type: pgvector
`))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.OverlapSize)
	assert.Equal(t, 10, cfg.Retriever.TopK)
	assert.True(t, cfg.Retriever.HistoryRewrite)
	assert.Equal(t, 4, cfg.Agent.MaxHops)
	assert.False(t, cfg.Agent.Format)
	assert.Equal(t, "redis", cfg.Conversation.Store)
	assert.Equal(t, 30*time.Minute, cfg.Conversation.TTL)
	assert.Equal(t, "pgvector", cfg.VectorStore.Type)
}

func TestLoad_InvalidOverlapClamped(t *testing.T) {
	cfg, err := Load(context.Background(), newTestConfig(t, `
ingest:
  chunkSize: 100
  overlapSize: 150
`))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Ingest.OverlapSize)
}

func TestValidateConfiguration(t *testing.T) {
	ctx := context.Background()

	t.Run("missing keys reported together", func(t *testing.T) {
		cfg, err := Load(ctx, newTestConfig(t, `
vectorStore:
  type: milvus
`))
		require.NoError(t, err)
		err = ValidateConfiguration(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat.apiKey")
		assert.Contains(t, err.Error(), "embedding.apiKey")
		assert.Contains(t, err.Error(), "milvus.address")
	})

	t.Run("memory store needs no address", func(t *testing.T) {
		cfg, err := Load(ctx, newTestConfig(t, `
chat:
  apiKey: a
embedding:
  apiKey: b
vectorStore:
  type: memory
`))
		require.NoError(t, err)
		assert.NoError(t, ValidateConfiguration(ctx, cfg))
	})

	t.Run("unsupported store type", func(t *testing.T) {
		cfg, err := Load(ctx, newTestConfig(t, `
chat:
  apiKey: a
embedding:
  apiKey: b
vectorStore:
  type: weaviate
`))
		require.NoError(t, err)
		err = ValidateConfiguration(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weaviate")
	})
}
