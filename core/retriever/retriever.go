package retriever

import (
	"context"
	"strings"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/vector_store"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

// Retriever 实现 retriever.Retriever：向量化查询后在集合中做近邻检索
type Retriever struct {
	store      vector_store.VectorStore
	embedder   embedding.Embedder
	collection string
	topK       int
}

// options 检索的实现特有选项
type options struct {
	filter *vector_store.Filter
}

// WithSpeaker 只检索指定发言人的片段
func WithSpeaker(speaker string) retriever.Option {
	return retriever.WrapImplSpecificOptFn(func(o *options) {
		if o.filter == nil {
			o.filter = &vector_store.Filter{}
		}
		o.filter.Speaker = speaker
	})
}

// WithSourceFile 只检索指定文件的片段
func WithSourceFile(file string) retriever.Option {
	return retriever.WrapImplSpecificOptFn(func(o *options) {
		if o.filter == nil {
			o.filter = &vector_store.Filter{}
		}
		o.filter.SourceFile = file
	})
}

func NewRetriever(store vector_store.VectorStore, embedder embedding.Embedder, collection string, topK int) *Retriever {
	if topK <= 0 {
		topK = 6
	}
	return &Retriever{store: store, embedder: embedder, collection: collection, topK: topK}
}

// Retrieve 返回按相似度降序排列的最多 TopK 个片段，无副作用
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "query is empty")
	}

	topK := r.topK
	co := retriever.GetCommonOptions(&retriever.Options{TopK: &topK, Embedding: r.embedder}, opts...)
	implOpts := retriever.GetImplSpecificOptions(&options{}, opts...)
	k := topK
	if co.TopK != nil && *co.TopK > 0 {
		k = *co.TopK
	}

	vectors, err := co.Embedding.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrEmbeddingFailed, "failed to embed query")
	}
	if len(vectors) != 1 {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "embedding returned %d vectors for 1 query", len(vectors))
	}

	docs, err := r.store.Search(ctx, r.collection, vector_store.Float64ToFloat32(vectors[0]), k, implOpts.filter)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrVectorSearch, "vector search failed")
	}

	if co.ScoreThreshold != nil {
		kept := docs[:0]
		for _, doc := range docs {
			if doc.Score() >= *co.ScoreThreshold {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}

	docs = sortDescending(docs)
	if len(docs) > k {
		docs = docs[:k]
	}
	g.Log().Infof(ctx, "query: %v, topK: %d, hits: %d", query, k, len(docs))
	return docs, nil
}
