package vector_store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// MilvusStore Milvus向量数据库实现
type MilvusStore struct {
	client   *milvusclient.Client
	database string
	dim      int
}

// NewMilvusStore 连接 Milvus 并创建向量存储实例
func NewMilvusStore(ctx context.Context, address, database string, dim int) (*MilvusStore, error) {
	if address == "" {
		return nil, fmt.Errorf("milvus.address is required but not found in config file. Please check your config.yaml file and ensure milvus.address is properly set")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension: %d", dim)
	}

	g.Log().Infof(ctx, "Connecting to Milvus at: %s, database: %s", address, database)

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: address,
		DBName:  database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client (address: %s, database: %s): %w", address, database, err)
	}

	return &MilvusStore{
		client:   client,
		database: database,
		dim:      dim,
	}, nil
}

// collectionFields 片段集合的字段定义
func collectionFields(dim int) []*entity.Field {
	return []*entity.Field{
		{
			Name:        common.FieldID,
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "256"},
			PrimaryKey:  true,
			AutoID:      false,
			Description: "Chunk ID derived from source file and offset",
		},
		{
			Name:        common.FieldContent,
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "65535"},
			Description: "Chunk text",
		},
		{
			Name:        common.FieldVector,
			DataType:    entity.FieldTypeFloatVector,
			TypeParams:  map[string]string{"dim": strconv.Itoa(dim)},
			Description: "Chunk embedding",
		},
		{
			Name:        common.FieldSpeaker,
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "512"},
			Description: "Speaker of the statement, empty when unattributed",
		},
		{
			Name:        common.FieldSourceFile,
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "512"},
			Description: "Transcript file the chunk was read from",
		},
		{
			Name:        common.FieldMetadata,
			DataType:    entity.FieldTypeJSON,
			Description: "Chunk metadata (JSON)",
		},
	}
}

// CreateCollection 创建集合
func (m *MilvusStore) CreateCollection(ctx context.Context, collectionName string) error {
	collSchema := &entity.Schema{
		CollectionName: collectionName,
		Description:    "Parliament session statement chunks",
		AutoID:         false,
		Fields:         collectionFields(m.dim),
	}

	// 创建集合，并在 vector 字段上建立 HNSW 索引
	err := m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(collectionName, collSchema).WithIndexOptions(
		milvusclient.NewCreateIndexOption(collectionName, common.FieldVector, index.NewHNSWIndex(entity.COSINE, 16, 200))))
	if err != nil {
		return fmt.Errorf("failed to create Milvus collection: %w", err)
	}

	// Load collection into memory
	_, err = m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to load Milvus collection: %w", err)
	}

	g.Log().Infof(ctx, "Collection '%s' created with dimension %d, index built and loaded", collectionName, m.dim)
	return nil
}

// CollectionExists 检查集合是否存在
func (m *MilvusStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	has, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(collectionName))
	if err != nil {
		return false, fmt.Errorf("failed to check if collection exists: %w", err)
	}
	return has, nil
}

// DeleteCollection 删除集合
func (m *MilvusStore) DeleteCollection(ctx context.Context, collectionName string) error {
	err := m.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	g.Log().Infof(ctx, "Collection '%s' deleted", collectionName)
	return nil
}

// Upsert 插入向量数据
func (m *MilvusStore) Upsert(ctx context.Context, collectionName string, chunks []*schema.Document, vectors [][]float32) ([]string, error) {
	if err := checkLengths(chunks, vectors); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	speakers := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	metadataList := make([][]byte, len(chunks))

	for idx, chunk := range chunks {
		ids[idx] = chunkID(chunk)
		texts[idx] = truncateString(chunk.Content, 65535)
		speakers[idx] = speakerOf(chunk)
		sources[idx] = sourceFileOf(chunk)

		metaBytes, err := marshalMetadata(chunk.MetaData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataList[idx] = metaBytes
	}

	columns := []column.Column{
		column.NewColumnVarChar(common.FieldID, ids),
		column.NewColumnVarChar(common.FieldContent, texts),
		column.NewColumnFloatVector(common.FieldVector, m.dim, vectors),
		column.NewColumnVarChar(common.FieldSpeaker, speakers),
		column.NewColumnVarChar(common.FieldSourceFile, sources),
		column.NewColumnJSONBytes(common.FieldMetadata, metadataList),
	}

	result, err := m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert vectors: %w", err)
	}

	g.Log().Infof(ctx, "Successfully inserted %d vectors into collection '%s'", result.InsertCount, collectionName)
	return ids, nil
}

// Search 向量检索
func (m *MilvusStore) Search(ctx context.Context, collectionName string, vector []float32, topK int, filter *Filter) ([]*schema.Document, error) {
	if topK <= 0 {
		return []*schema.Document{}, nil
	}

	searchOpt := milvusclient.NewSearchOption(collectionName, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(common.FieldVector).
		WithOutputFields(common.FieldID, common.FieldContent, common.FieldMetadata).
		WithConsistencyLevel(entity.ClBounded)

	if expr := milvusFilterExpr(filter); expr != "" {
		searchOpt = searchOpt.WithFilter(expr)
	}

	results, err := m.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("search has error: %w", err)
	}
	if len(results) == 0 {
		return []*schema.Document{}, nil
	}

	docs, err := convertResultsToDocuments(ctx, results[0].Fields, results[0].Scores)
	if err != nil {
		return nil, err
	}
	return sortByScore(docs, topK), nil
}

func (m *MilvusStore) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

func milvusFilterExpr(filter *Filter) string {
	if filter.IsEmpty() {
		return ""
	}
	var conds []string
	if filter.Speaker != "" {
		conds = append(conds, fmt.Sprintf(`%s == "%s"`, common.FieldSpeaker, common.SanitizeMilvusString(filter.Speaker)))
	}
	if filter.SourceFile != "" {
		conds = append(conds, fmt.Sprintf(`%s == "%s"`, common.FieldSourceFile, common.SanitizeMilvusString(filter.SourceFile)))
	}
	return strings.Join(conds, " && ")
}

// convertResultsToDocuments 转换搜索结果为文档
func convertResultsToDocuments(ctx context.Context, columns []column.Column, scores []float32) ([]*schema.Document, error) {
	if len(columns) == 0 {
		return []*schema.Document{}, nil
	}

	numDocs := columns[0].Len()
	result := make([]*schema.Document, numDocs)
	for i := range result {
		result[i] = &schema.Document{MetaData: make(map[string]any)}
	}

	for _, col := range columns {
		switch col.Name() {
		case common.FieldID:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, fmt.Errorf("failed to get id: %w", err)
				}
				if str, ok := val.(string); ok {
					result[i].ID = str
				}
			}
		case common.FieldContent:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, fmt.Errorf("failed to get text: %w", err)
				}
				if str, ok := val.(string); ok {
					result[i].Content = str
				}
			}
		case common.FieldMetadata:
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil || val == nil {
					continue
				}
				var meta map[string]any
				switch v := val.(type) {
				case string:
					meta = unmarshalMetadata(ctx, []byte(v))
				case []byte:
					meta = unmarshalMetadata(ctx, v)
				}
				for k, mv := range meta {
					result[i].MetaData[k] = mv
				}
			}
		}
	}

	// 分数最后设置，避免被 metadata 覆盖
	for i := 0; i < numDocs && i < len(scores); i++ {
		result[i].WithScore(float64(scores[i]))
	}
	return result, nil
}
