package vector_store

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// VectorStoreType 向量数据库类型
type VectorStoreType string

const (
	VectorStoreTypeMilvus     VectorStoreType = "milvus"
	VectorStoreTypePostgreSQL VectorStoreType = "pgvector"
	VectorStoreTypeMemory     VectorStoreType = "memory"
)

// Filter 检索过滤条件，空字段表示不过滤
type Filter struct {
	Speaker    string
	SourceFile string
}

// IsEmpty 是否没有任何过滤条件
func (f *Filter) IsEmpty() bool {
	return f == nil || (f.Speaker == "" && f.SourceFile == "")
}

// VectorStore 向量数据库接口，按逻辑集合名寻址
type VectorStore interface {
	// CreateCollection 创建集合
	CreateCollection(ctx context.Context, collectionName string) error

	// CollectionExists 检查集合是否存在
	CollectionExists(ctx context.Context, collectionName string) (bool, error)

	// DeleteCollection 删除集合
	DeleteCollection(ctx context.Context, collectionName string) error

	// Upsert 写入片段及其向量，追加语义，不做去重
	Upsert(ctx context.Context, collectionName string, chunks []*schema.Document, vectors [][]float32) ([]string, error)

	// Search 近邻检索，结果按相似度降序，长度不超过 topK
	Search(ctx context.Context, collectionName string, vector []float32, topK int, filter *Filter) ([]*schema.Document, error)

	// Close 释放底层连接
	Close(ctx context.Context) error
}
