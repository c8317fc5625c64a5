package vector_store

import (
	"context"
	"testing"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChunk(id, text, speaker string) *schema.Document {
	meta := map[string]any{common.MetaSourceFile: "2024-09-04.json"}
	if speaker != "" {
		meta[common.MetaSpeaker] = speaker
	}
	return &schema.Document{ID: id, Content: text, MetaData: meta}
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateCollection(ctx, "Sessions"))

	chunks := []*schema.Document{
		newChunk("a", "far", "A"),
		newChunk("b", "near", "B"),
		newChunk("c", "middle", ""),
	}
	vectors := [][]float32{{0, 1}, {1, 0.05}, {1, 1}}
	ids, err := store.Upsert(ctx, "Sessions", chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	results, err := store.Search(ctx, "Sessions", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "a", results[2].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score(), results[i].Score())
	}

	top1, err := store.Search(ctx, "Sessions", []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, top1, 1)
}

func TestMemoryStore_Filter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateCollection(ctx, "Sessions"))

	_, err := store.Upsert(ctx, "Sessions",
		[]*schema.Document{newChunk("a", "x", "A"), newChunk("b", "y", "B")},
		[][]float32{{1, 0}, {1, 0}})
	require.NoError(t, err)

	results, err := store.Search(ctx, "Sessions", []float32{1, 0}, 5, &Filter{Speaker: "B"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "B", common.Speaker(results[0]))
}

func TestMemoryStore_UpsertIsAdditive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateCollection(ctx, "Sessions"))

	chunk := newChunk("same-id", "Hello world", "A")
	for i := 0; i < 2; i++ {
		_, err := store.Upsert(ctx, "Sessions", []*schema.Document{chunk}, [][]float32{{1, 0}})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, store.Count("Sessions"))
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Search(ctx, "missing", []float32{1}, 3, nil)
	assert.Error(t, err)

	require.NoError(t, store.CreateCollection(ctx, "Sessions"))
	_, err = store.Upsert(ctx, "Sessions", []*schema.Document{newChunk("a", "x", "")}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")

	exists, err := store.CollectionExists(ctx, "Sessions")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, store.DeleteCollection(ctx, "Sessions"))
	exists, _ = store.CollectionExists(ctx, "Sessions")
	assert.False(t, exists)
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, EnsureCollection(ctx, store, "Sessions"))
	require.NoError(t, EnsureCollection(ctx, store, "Sessions"))
	exists, err := store.CollectionExists(ctx, "Sessions")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTruncateString(t *testing.T) {
	s := "Здравей"
	out := truncateString(s, 3)
	assert.Equal(t, "З", out)
	assert.Equal(t, s, truncateString(s, 100))
}

func TestUnmarshalMetadata(t *testing.T) {
	ctx := context.Background()
	meta := unmarshalMetadata(ctx, []byte(`{"speaker":"Рая Назарян","unit":3}`))
	assert.Equal(t, "Рая Назарян", meta[common.MetaSpeaker])

	// 损坏的元数据不影响检索结果，返回空 map
	broken := unmarshalMetadata(ctx, []byte(`{"speaker":"Рая`))
	require.NotNil(t, broken)
	assert.Empty(t, broken)
	assert.Empty(t, unmarshalMetadata(ctx, nil))
}
