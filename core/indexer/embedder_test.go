package indexer

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyEmbedder 前 failures 次调用失败，之后把文本长度编码为向量
type flakyEmbedder struct {
	failures int64
	calls    atomic.Int64
}

func (f *flakyEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, fmt.Errorf("rate limited")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t))}
	}
	return out, nil
}

func TestBatchEmbedder_PreservesOrder(t *testing.T) {
	texts := make([]string, 23)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}
	inner := &flakyEmbedder{}
	b := NewBatchEmbedder(inner, 5, 3, 0)

	vectors, err := b.EmbedStrings(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Equal(t, float64(i+1), v[0])
	}
	assert.Equal(t, int64(5), inner.calls.Load())
}

func TestBatchEmbedder_RetriesThenSucceeds(t *testing.T) {
	inner := &flakyEmbedder{failures: 2}
	b := NewBatchEmbedder(inner, 10, 1, 3, WithBackoff(time.Millisecond, 5*time.Millisecond))

	vectors, err := b.EmbedStrings(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, vectors)
	assert.Equal(t, int64(3), inner.calls.Load())
}

func TestBatchEmbedder_GivesUp(t *testing.T) {
	inner := &flakyEmbedder{failures: 100}
	b := NewBatchEmbedder(inner, 10, 1, 2, WithBackoff(time.Millisecond, time.Millisecond))

	_, err := b.EmbedStrings(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrEmbeddingFailed))
	assert.Equal(t, int64(3), inner.calls.Load())
}

func TestBatchEmbedder_Empty(t *testing.T) {
	inner := &flakyEmbedder{}
	vectors, err := NewBatchEmbedder(inner, 10, 1, 0).EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, inner.calls.Load())
}
