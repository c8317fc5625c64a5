package indexer

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// NewTransformer 创建片段切分器：先按段落、换行、空格递归切分，仍超长的片段再按字符硬切
func NewTransformer(ctx context.Context, chunkSize, overlapSize int) (document.Transformer, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", chunkSize)
	}
	if overlapSize < 0 || overlapSize >= chunkSize {
		return nil, fmt.Errorf("overlap size %d must be in [0, %d)", overlapSize, chunkSize)
	}

	// 递归分割
	recTrans, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: overlapSize,
		Separators:  []string{"\n\n", "\n", " "},
		LenFunc:     utf8.RuneCountInString, // 按字符计长，默认 len() 按字节计
	})
	if err != nil {
		return nil, err
	}
	return &transformer{
		recursive:   recTrans,
		chunkSize:   chunkSize,
		overlapSize: overlapSize,
	}, nil
}

type transformer struct {
	recursive   document.Transformer
	chunkSize   int
	overlapSize int
}

// Transform 每个输出片段都继承父单元的元数据，并记录在单元内的序号
func (x *transformer) Transform(ctx context.Context, docs []*schema.Document, opts ...document.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range docs {
		pieces, err := x.split(ctx, doc, opts...)
		if err != nil {
			return nil, err
		}
		for i, piece := range pieces {
			meta := copyMeta(doc.MetaData)
			meta[common.MetaChunk] = i
			out = append(out, &schema.Document{Content: piece, MetaData: meta})
		}
	}
	return out, nil
}

func (x *transformer) split(ctx context.Context, doc *schema.Document, opts ...document.TransformerOption) ([]string, error) {
	if utf8.RuneCountInString(doc.Content) <= x.chunkSize {
		return []string{doc.Content}, nil
	}

	parts, err := x.recursive.Transform(ctx, []*schema.Document{{Content: doc.Content}}, opts...)
	if err != nil {
		return nil, err
	}
	var pieces []string
	for _, p := range parts {
		if p.Content == "" {
			continue
		}
		pieces = append(pieces, hardCut(p.Content, x.chunkSize, x.overlapSize)...)
	}
	return pieces, nil
}

// hardCut 按字符切分，相邻片段重叠 overlap 个字符
func hardCut(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var pieces []string
	for start := 0; ; start += step {
		end := start + size
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
