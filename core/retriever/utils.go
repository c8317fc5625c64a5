package retriever

import (
	"sort"

	"github.com/cloudwego/eino/schema"
)

// sortDescending 按分数降序稳定排序
func sortDescending(docs []*schema.Document) []*schema.Document {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score() > docs[j].Score()
	})
	return docs
}
