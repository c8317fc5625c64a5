package common

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

func Of[T any](v T) *T {
	return &v
}

// MetaString 读取字符串类型的元数据，不存在时返回空串
func MetaString(doc *schema.Document, key string) string {
	if doc == nil || doc.MetaData == nil {
		return ""
	}
	v, ok := doc.MetaData[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Speaker 返回文档的发言人，未归属时返回空串
func Speaker(doc *schema.Document) string {
	return MetaString(doc, MetaSpeaker)
}

// RenderStatement 以 "发言人: 内容" 的形式渲染一个片段
func RenderStatement(doc *schema.Document) string {
	speaker := Speaker(doc)
	if speaker == "" {
		return doc.Content
	}
	return speaker + ": " + doc.Content
}

// FormatDocuments 按顺序拼接片段，作为 prompt 的上下文
func FormatDocuments(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, RenderStatement(doc))
	}
	return strings.Join(parts, "\n\n")
}
