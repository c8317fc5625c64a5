package indexer

import (
	"context"
	"fmt"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/metrics"
	"github.com/Malowking/parlrag/core/vector_store"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

// Report 一次导入的结果
type Report struct {
	Chunks int              // 成功写入的片段数
	Files  []string         // 成功导入的文件
	Failed map[string]error // 失败的文件及原因
}

// IngestorConfig 导入参数
type IngestorConfig struct {
	Collection  string
	ChunkSize   int
	OverlapSize int
}

// Ingestor 文档导入器
type Ingestor struct {
	store      vector_store.VectorStore
	collection string
	pipeline   compose.Runnable[[]*schema.Document, []string]
}

// NewIngestor embedder 应已具备分批与重试能力（见 BatchEmbedder）
func NewIngestor(ctx context.Context, store vector_store.VectorStore, embedder embedding.Embedder, conf IngestorConfig) (*Ingestor, error) {
	transformer, err := NewTransformer(ctx, conf.ChunkSize, conf.OverlapSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidParameter, "invalid splitter settings")
	}
	idx, err := NewIndexer(store, embedder, conf.Collection)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidParameter, "invalid indexer settings")
	}
	pipeline, err := BuildPipeline(ctx, transformer, idx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternalError, "failed to compile ingest pipeline")
	}
	return &Ingestor{store: store, collection: conf.Collection, pipeline: pipeline}, nil
}

// Ingest 导入来源中的全部文件。
// 单个文件读取或解析失败只记录到 Report.Failed；向量化或写入失败中止整个导入。
func (i *Ingestor) Ingest(ctx context.Context, src Source) (*Report, error) {
	if err := vector_store.EnsureCollection(ctx, i.store, i.collection); err != nil {
		return nil, err
	}

	files, err := src.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrIngestFailed, "failed to list source files")
	}
	g.Log().Infof(ctx, "Found %d transcript files to ingest into '%s'", len(files), i.collection)

	report := &Report{Failed: make(map[string]error)}
	for _, file := range files {
		docs, err := src.Load(ctx, file)
		if err != nil {
			g.Log().Warningf(ctx, "Skipping %s: %v", file, err)
			report.Failed[file] = err
			metrics.IngestFailedFiles.Inc()
			continue
		}

		ids, err := i.pipeline.Invoke(ctx, docs)
		if err != nil {
			return report, errors.Wrap(err, errors.ErrIngestFailed, fmt.Sprintf("failed to index %s", file))
		}

		report.Chunks += len(ids)
		report.Files = append(report.Files, file)
		metrics.IngestChunks.Add(float64(len(ids)))
		g.Log().Infof(ctx, "Ingested %s: %d chunks", file, len(ids))
	}

	g.Log().Infof(ctx, "Ingestion finished: %d chunks from %d files, %d failed",
		report.Chunks, len(report.Files), len(report.Failed))
	return report, nil
}
