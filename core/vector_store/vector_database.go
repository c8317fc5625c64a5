package vector_store

import (
	"context"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/gogf/gf/v2/frame/g"
)

// NewVectorStore 根据配置创建向量存储实例
func NewVectorStore(ctx context.Context, cfg *config.Config) (VectorStore, error) {
	dbType := VectorStoreType(cfg.VectorStore.Type)
	g.Log().Infof(ctx, "Initializing vector store with type: %s", dbType)

	switch dbType {
	case VectorStoreTypeMilvus:
		store, err := NewMilvusStore(ctx, cfg.Milvus.Address, cfg.Milvus.Database, cfg.Milvus.Dim)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrVectorStoreInit, "failed to initialize Milvus vector store")
		}
		return store, nil
	case VectorStoreTypePostgreSQL:
		store, err := NewPostgresStore(ctx, cfg.Postgres.DSN, cfg.Postgres.Schema, cfg.Postgres.Dim)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrVectorStoreInit, "failed to initialize PostgreSQL vector store")
		}
		return store, nil
	case VectorStoreTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidParameter, "unsupported vector database type: %s. Supported types: milvus, pgvector, memory", dbType)
	}
}

// EnsureCollection 集合不存在时创建
func EnsureCollection(ctx context.Context, store VectorStore, collectionName string) error {
	if !common.ValidateCollectionName(collectionName) {
		return errors.Newf(errors.ErrInvalidParameter, "invalid collection name: %q", collectionName)
	}
	exists, err := store.CollectionExists(ctx, collectionName)
	if err != nil {
		return errors.Wrap(err, errors.ErrVectorStoreNotFound, "check collection")
	}
	if exists {
		return nil
	}
	g.Log().Infof(ctx, "Collection '%s' does not exist, creating", collectionName)
	if err := store.CreateCollection(ctx, collectionName); err != nil {
		return errors.Wrap(err, errors.ErrVectorStoreInit, "create collection")
	}
	return nil
}
