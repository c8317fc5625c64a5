package indexer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardCut(t *testing.T) {
	text := strings.Repeat("абвгдежзий", 25) // 250 个字符
	pieces := hardCut(text, 100, 20)

	require.Len(t, pieces, 3)
	for i, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 100)
		if i > 0 {
			prev := []rune(pieces[i-1])
			cur := []rune(p)
			assert.Equal(t, string(prev[len(prev)-20:]), string(cur[:20]))
		}
	}
	assert.Equal(t, []string{"short"}, hardCut("short", 100, 20))
}

func TestTransformer_SizeBoundAndMetadata(t *testing.T) {
	ctx := context.Background()
	tr, err := NewTransformer(ctx, 100, 20)
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("Народното събрание прие закона ")
	}
	docs := []*schema.Document{
		{
			Content: sb.String(),
			MetaData: map[string]any{
				common.MetaSpeaker:    "A",
				common.MetaSourceFile: "2024-09-04.json",
				common.MetaUnit:       3,
			},
		},
		{
			Content:  "short statement",
			MetaData: map[string]any{common.MetaSourceFile: "2024-09-04.json", common.MetaUnit: 4},
		},
	}

	chunks, err := tr.Transform(ctx, docs)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "short statement", last.Content)
	assert.Equal(t, 0, last.MetaData[common.MetaChunk])
	_, hasSpeaker := last.MetaData[common.MetaSpeaker]
	assert.False(t, hasSpeaker)

	for i, c := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 100)
		assert.Equal(t, "A", c.MetaData[common.MetaSpeaker])
		assert.Equal(t, "2024-09-04.json", c.MetaData[common.MetaSourceFile])
		assert.Equal(t, 3, c.MetaData[common.MetaUnit])
		assert.Equal(t, i, c.MetaData[common.MetaChunk])
	}
	// 父文档元数据不被修改
	_, touched := docs[0].MetaData[common.MetaChunk]
	assert.False(t, touched)
}

func TestNewTransformer_InvalidSizes(t *testing.T) {
	_, err := NewTransformer(context.Background(), 0, 0)
	assert.Error(t, err)
	_, err = NewTransformer(context.Background(), 100, 100)
	assert.Error(t, err)
}

// 西里尔文每个字符占两个字节，片段长度和重叠都必须按字符计
func TestTransformer_CyrillicChunksMeasuredInRunes(t *testing.T) {
	ctx := context.Background()
	tr, err := NewTransformer(ctx, 1000, 200)
	require.NoError(t, err)

	words := make([]string, 170)
	for i := range words {
		words[i] = fmt.Sprintf("заседание-%04d", i) // 14 个字符
	}
	text := strings.Join(words, " ")
	require.Greater(t, utf8.RuneCountInString(text), 2500)

	out, err := tr.Transform(ctx, []*schema.Document{{Content: text, MetaData: map[string]any{}}})
	require.NoError(t, err)
	require.Len(t, out, 3)

	for i, doc := range out {
		n := utf8.RuneCountInString(doc.Content)
		assert.LessOrEqual(t, n, 1000)
		if i < len(out)-1 {
			assert.GreaterOrEqual(t, n, 900, "chunk %d has %d runes", i, n)
		}
		if i > 0 {
			shared := sharedRunes(out[i-1].Content, doc.Content)
			assert.GreaterOrEqual(t, shared, 150, "chunks %d and %d share %d runes", i-1, i, shared)
			assert.LessOrEqual(t, shared, 200)
		}
	}
	assert.True(t, strings.HasPrefix(out[0].Content, "заседание-0000 "))
	assert.True(t, strings.HasSuffix(out[len(out)-1].Content, "заседание-0169"))
}

// sharedRunes 返回 prev 的后缀与 next 的前缀的最长公共长度（字符）
func sharedRunes(prev, next string) int {
	p, n := []rune(prev), []rune(next)
	for k := min(len(p), len(n)); k > 0; k-- {
		if string(p[len(p)-k:]) == string(n[:k]) {
			return k
		}
	}
	return 0
}
