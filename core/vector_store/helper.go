package vector_store

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/Malowking/parlrag/core/common"
	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"
)

// Float64ToFloat32 embedding 返回 float64，向量库使用 float32
func Float64ToFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	// 避免截断在多字节字符中间
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

func checkLengths(chunks []*schema.Document, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	return nil
}

func chunkID(chunk *schema.Document) string {
	if len(chunk.ID) == 0 {
		chunk.ID = uuid.New().String()
	}
	return chunk.ID
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	return sonic.Marshal(metadata)
}

// unmarshalMetadata 损坏的元数据记录警告并返回空 map，检索结果本身仍然可用
func unmarshalMetadata(ctx context.Context, data []byte) map[string]any {
	meta := make(map[string]any)
	if len(data) == 0 {
		return meta
	}
	if err := sonic.Unmarshal(data, &meta); err != nil {
		g.Log().Warningf(ctx, "Dropping corrupt chunk metadata %q: %v", truncateString(string(data), 200), err)
		return make(map[string]any)
	}
	return meta
}

// sortByScore 按分数降序稳定排序并截断到 topK
func sortByScore(docs []*schema.Document, topK int) []*schema.Document {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score() > docs[j].Score()
	})
	if topK >= 0 && len(docs) > topK {
		docs = docs[:topK]
	}
	return docs
}

func speakerOf(chunk *schema.Document) string {
	return common.Speaker(chunk)
}

func sourceFileOf(chunk *schema.Document) string {
	return common.MetaString(chunk, common.MetaSourceFile)
}
