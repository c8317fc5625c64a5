package common

import (
	"context"
	"time"

	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// NewEmbedder 创建 OpenAI 兼容的 embedding 客户端
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrModelConfigInvalid, "embedding apiKey is required")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrModelConfigInvalid, "embedding model not found")
	}

	conf := &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: 5 * time.Minute,
	}
	if cfg.Dimensions > 0 {
		dim := cfg.Dimensions
		conf.Dimensions = &dim
	}

	emb, err := openai.NewEmbedder(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrModelConfigInvalid, "create embedder")
	}
	return emb, nil
}
