package common

import (
	"context"
	"fmt"
	"time"

	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/gogf/gf/v2/frame/g"
)

const chatModelTimeout = 2 * time.Minute

// NewChatModel 根据 provider 创建支持工具调用的对话模型
func NewChatModel(ctx context.Context, cfg config.ChatConfig) (einoModel.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrModelConfigInvalid, "chat apiKey is required")
	}
	temperature := cfg.Temperature

	g.Log().Infof(ctx, "Creating chat model - provider: %s, model: %s", cfg.Provider, cfg.Model)

	switch cfg.Provider {
	case "", "openai":
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: &temperature,
			Timeout:     chatModelTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrModelConfigInvalid, "create openai chat model")
		}
		return cm, nil
	case "qwen":
		cm, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: &temperature,
			Timeout:     chatModelTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrModelConfigInvalid, "create qwen chat model")
		}
		return cm, nil
	default:
		return nil, errors.New(errors.ErrModelConfigInvalid, fmt.Sprintf("unsupported chat provider: %s", cfg.Provider))
	}
}
