package indexer

import (
	"context"
	"time"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// BatchEmbedder 分批并发向量化，带指数退避重试，输出顺序与输入一致
type BatchEmbedder struct {
	embedder    embedding.Embedder
	batchSize   int
	concurrency int
	maxRetries  uint64

	initialDelay time.Duration
	maxDelay     time.Duration
}

// BatchOption 调整批处理参数
type BatchOption func(*BatchEmbedder)

// WithBackoff 设置重试的初始与最大间隔
func WithBackoff(initial, max time.Duration) BatchOption {
	return func(b *BatchEmbedder) {
		b.initialDelay = initial
		b.maxDelay = max
	}
}

func NewBatchEmbedder(embedder embedding.Embedder, batchSize, concurrency, maxRetries int, opts ...BatchOption) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = 30
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := &BatchEmbedder{
		embedder:     embedder,
		batchSize:    batchSize,
		concurrency:  concurrency,
		maxRetries:   uint64(maxRetries),
		initialDelay: 1 * time.Second,
		maxDelay:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EmbedStrings 实现 embedding.Embedder
func (b *BatchEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	vectors := make([][]float64, len(texts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		eg.Go(func() error {
			batch, err := b.embedWithRetry(egCtx, texts[start:end], opts...)
			if err != nil {
				return errors.Wrapf(err, errors.ErrEmbeddingFailed, "batch [%d, %d) failed", start, end)
			}
			if len(batch) != end-start {
				return errors.Newf(errors.ErrEmbeddingFailed, "embedding returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *BatchEmbedder) embedWithRetry(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	backoff := retry.WithMaxRetries(b.maxRetries, retry.WithCappedDuration(b.maxDelay, retry.NewExponential(b.initialDelay)))

	var (
		vectors [][]float64
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, err := b.embedder.EmbedStrings(ctx, texts, opts...)
		if err != nil {
			g.Log().Warningf(ctx, "Embedding attempt %d failed: %v", attempt, err)
			return retry.RetryableError(err)
		}
		vectors = out
		return nil
	})
	return vectors, err
}
