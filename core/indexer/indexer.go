package indexer

import (
	"context"
	"fmt"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/vector_store"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

// VectorIndexer 实现 indexer.Indexer：向量化后写入指定集合
type VectorIndexer struct {
	store      vector_store.VectorStore
	embedder   embedding.Embedder
	collection string
}

// NewIndexer 创建写入 collectionName 的索引器
func NewIndexer(store vector_store.VectorStore, embedder embedding.Embedder, collectionName string) (*VectorIndexer, error) {
	if collectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	return &VectorIndexer{store: store, embedder: embedder, collection: collectionName}, nil
}

func (v *VectorIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...indexer.Option) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	commonOpts := indexer.GetCommonOptions(&indexer.Options{Embedding: v.embedder}, opts...)
	vectors, err := commonOpts.Embedding.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrEmbeddingFailed, "failed to embed chunks")
	}
	if len(vectors) != len(docs) {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "embedding returned %d vectors for %d chunks", len(vectors), len(docs))
	}

	f32 := make([][]float32, len(vectors))
	for i, vec := range vectors {
		f32[i] = vector_store.Float64ToFloat32(vec)
	}

	ids, err := v.store.Upsert(ctx, v.collection, docs, f32)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrVectorInsert, "failed to upsert chunks")
	}
	g.Log().Debugf(ctx, "Indexed %d chunks into collection '%s'", len(ids), v.collection)
	return ids, nil
}
