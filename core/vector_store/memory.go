package vector_store

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cloudwego/eino/schema"
)

type memoryEntry struct {
	doc    *schema.Document
	vector []float32
	norm   float64
}

// MemoryStore 进程内向量库，暴力余弦检索，用于本地开发和测试
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]memoryEntry)}
}

func (m *MemoryStore) CreateCollection(_ context.Context, collectionName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collectionName]; !ok {
		m.collections[collectionName] = nil
	}
	return nil
}

func (m *MemoryStore) CollectionExists(_ context.Context, collectionName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collectionName]
	return ok, nil
}

func (m *MemoryStore) DeleteCollection(_ context.Context, collectionName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collectionName)
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, collectionName string, chunks []*schema.Document, vectors [][]float32) ([]string, error) {
	if err := checkLengths(chunks, vectors); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.collections[collectionName]
	if !ok {
		return nil, fmt.Errorf("collection '%s' not found", collectionName)
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunkID(chunk)
		entries = append(entries, memoryEntry{
			doc:    copyDocument(chunk),
			vector: append([]float32(nil), vectors[i]...),
			norm:   norm(vectors[i]),
		})
	}
	m.collections[collectionName] = entries
	return ids, nil
}

func (m *MemoryStore) Search(_ context.Context, collectionName string, vector []float32, topK int, filter *Filter) ([]*schema.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.collections[collectionName]
	if !ok {
		return nil, fmt.Errorf("collection '%s' not found", collectionName)
	}

	qNorm := norm(vector)
	results := make([]*schema.Document, 0, len(entries))
	for _, e := range entries {
		if !filter.IsEmpty() {
			if filter.Speaker != "" && speakerOf(e.doc) != filter.Speaker {
				continue
			}
			if filter.SourceFile != "" && sourceFileOf(e.doc) != filter.SourceFile {
				continue
			}
		}
		doc := copyDocument(e.doc)
		doc.WithScore(cosine(vector, qNorm, e.vector, e.norm))
		results = append(results, doc)
	}
	return sortByScore(results, topK), nil
}

func (m *MemoryStore) Close(context.Context) error {
	return nil
}

// Count 返回集合中的片段数
func (m *MemoryStore) Count(collectionName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collectionName])
}

func copyDocument(doc *schema.Document) *schema.Document {
	meta := make(map[string]any, len(doc.MetaData))
	for k, v := range doc.MetaData {
		meta[k] = v
	}
	return &schema.Document{ID: doc.ID, Content: doc.Content, MetaData: meta}
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
