package vector_store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore PostgreSQL向量数据库实现（pgvector）
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string // 向量数据存储的 schema
	dim    int
}

// NewPostgresStore 创建PostgreSQL向量存储实例
func NewPostgresStore(ctx context.Context, dsn, schemaName string, dim int) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	if schemaName == "" {
		schemaName = "public"
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	g.Log().Infof(ctx, "PostgreSQL vector store connected, schema: %s", schemaName)
	return &PostgresStore{
		pool:   pool,
		schema: sanitizeIdentifier(schemaName),
		dim:    dim,
	}, nil
}

func (p *PostgresStore) tableName(collectionName string) string {
	return fmt.Sprintf("%s.%s", p.schema, strings.ToLower(sanitizeIdentifier(collectionName)))
}

// CreateCollection 创建集合（表）
// pk 为自增主键，id 不唯一，重复导入会产生重复片段
func (p *PostgresStore) CreateCollection(ctx context.Context, collectionName string) error {
	fullTableName := p.tableName(collectionName)
	indexPrefix := strings.ReplaceAll(fullTableName, ".", "_")

	createSQLs := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			pk BIGSERIAL PRIMARY KEY,
			id VARCHAR(256) NOT NULL,
			text TEXT NOT NULL,
			vector vector(%d) NOT NULL,
			speaker VARCHAR(512),
			source_file VARCHAR(512),
			metadata JSONB
		)`, fullTableName, p.dim),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_vector_idx ON %s USING hnsw (vector vector_cosine_ops)", indexPrefix, fullTableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_speaker_idx ON %s (speaker)", indexPrefix, fullTableName),
	}
	for _, sql := range createSQLs {
		if _, err := p.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to create table %s: %w", fullTableName, err)
		}
	}

	g.Log().Infof(ctx, "Table '%s' created with dimension %d and indexes", fullTableName, p.dim)
	return nil
}

// CollectionExists 检查集合（表）是否存在
func (p *PostgresStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	table := strings.ToLower(sanitizeIdentifier(collectionName))

	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)",
		p.schema, table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if table %s.%s exists: %w", p.schema, table, err)
	}
	return exists, nil
}

// DeleteCollection 删除集合（表）
func (p *PostgresStore) DeleteCollection(ctx context.Context, collectionName string) error {
	fullTableName := p.tableName(collectionName)
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", fullTableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", fullTableName, err)
	}
	g.Log().Infof(ctx, "Table '%s' deleted", fullTableName)
	return nil
}

// Upsert 插入向量数据
func (p *PostgresStore) Upsert(ctx context.Context, collectionName string, chunks []*schema.Document, vectors [][]float32) ([]string, error) {
	if err := checkLengths(chunks, vectors); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	fullTableName := p.tableName(collectionName)
	ids := make([]string, len(chunks))

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, text, vector, speaker, source_file, metadata)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`, fullTableName)

	for idx, chunk := range chunks {
		ids[idx] = chunkID(chunk)

		metaBytes, err := marshalMetadata(chunk.MetaData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}

		_, err = tx.Exec(ctx, insertSQL, chunk.ID, chunk.Content, pgvector.NewVector(vectors[idx]),
			speakerOf(chunk), sourceFileOf(chunk), metaBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to insert vector for chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	g.Log().Infof(ctx, "Successfully inserted %d vectors into table '%s'", len(chunks), fullTableName)
	return ids, nil
}

// Search 余弦相似度检索，分数 = 1 - 余弦距离
func (p *PostgresStore) Search(ctx context.Context, collectionName string, vector []float32, topK int, filter *Filter) ([]*schema.Document, error) {
	if topK <= 0 {
		return []*schema.Document{}, nil
	}

	args := []any{pgvector.NewVector(vector), topK}
	var conds []string
	if !filter.IsEmpty() {
		if filter.Speaker != "" {
			args = append(args, filter.Speaker)
			conds = append(conds, fmt.Sprintf("speaker = $%d", len(args)))
		}
		if filter.SourceFile != "" {
			args = append(args, filter.SourceFile)
			conds = append(conds, fmt.Sprintf("source_file = $%d", len(args)))
		}
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	searchSQL := fmt.Sprintf(`
		SELECT id, text, metadata, 1 - (vector <=> $1) AS similarity_score
		FROM %s
		%s
		ORDER BY vector <=> $1
		LIMIT $2
	`, p.tableName(collectionName), where)

	rows, err := p.pool.Query(ctx, searchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer rows.Close()

	var results []*schema.Document
	for rows.Next() {
		var (
			id, text      string
			metadataBytes []byte
			score         float64
		)
		if err := rows.Scan(&id, &text, &metadataBytes, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		doc := &schema.Document{
			ID:       id,
			Content:  text,
			MetaData: unmarshalMetadata(ctx, metadataBytes),
		}
		results = append(results, doc.WithScore(score))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return sortByScore(results, topK), nil
}

func (p *PostgresStore) Close(context.Context) error {
	p.pool.Close()
	return nil
}

// sanitizeIdentifier 简单的标识符清理：只允许字母、数字和下划线
func sanitizeIdentifier(name string) string {
	var result strings.Builder
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_' {
			result.WriteRune(char)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
