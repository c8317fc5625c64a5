package indexer

import (
	"context"
	"fmt"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// BuildPipeline 构建单个文件的导入流水线：分段 -> 切分 -> 分配 ID -> 写入
// 输入为已加载的文件文档，输出为写入的片段 ID
func BuildPipeline(ctx context.Context, transformer document.Transformer, idx indexer.Indexer) (compose.Runnable[[]*schema.Document, []string], error) {
	const (
		Segmenter           = "Segmenter"
		DocumentTransformer = "DocumentTransformer"
		AssignIDs           = "AssignIDs"
		Indexer             = "Indexer"
	)

	g := compose.NewGraph[[]*schema.Document, []string]()
	_ = g.AddLambdaNode(Segmenter, compose.InvokableLambda(segmentDocuments))
	_ = g.AddDocumentTransformerNode(DocumentTransformer, transformer)
	_ = g.AddLambdaNode(AssignIDs, compose.InvokableLambda(assignChunkIDs))
	_ = g.AddIndexerNode(Indexer, idx)

	_ = g.AddEdge(compose.START, Segmenter)
	_ = g.AddEdge(Segmenter, DocumentTransformer)
	_ = g.AddEdge(DocumentTransformer, AssignIDs)
	_ = g.AddEdge(AssignIDs, Indexer)
	_ = g.AddEdge(Indexer, compose.END)

	return g.Compile(ctx, compose.WithGraphName("ingest"))
}

// assignChunkIDs 片段 ID 由 "来源文件#单元序号#片段序号" 确定性生成
func assignChunkIDs(_ context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	for _, doc := range docs {
		doc.ID = ChunkID(
			common.MetaString(doc, common.MetaSourceFile),
			common.MetaString(doc, common.MetaUnit),
			common.MetaString(doc, common.MetaChunk),
		)
	}
	return docs, nil
}

// ChunkID 同一文件同一位置的片段总是得到相同的 ID
func ChunkID(sourceFile, unit, chunk string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%s#%s", sourceFile, unit, chunk))).String()
}
