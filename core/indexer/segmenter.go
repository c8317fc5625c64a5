package indexer

import (
	"context"
	"regexp"
	"strings"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino/schema"
)

// delimiterPattern 发言人分隔行，两种形式:
//   - "职位 (ID: 姓名): [发言内容]"，带职位前缀时必须有冒号
//   - "(ID: 姓名)[:] [发言内容]"，位于行首
//
// 句中引用的 "(ID: X)" 不算分隔行。
var delimiterPattern = regexp.MustCompile(`^(?:(.*?)\s*\(ID:\s*([^)]*?)\s*\)\s*:|\(ID:\s*([^)]*?)\s*\)\s*:?)\s*(.*)$`)

// Unit 分段后的一条发言，Speaker 为空表示出现在任何分隔行之前
type Unit struct {
	Speaker  string
	Position string
	Text     string
	Index    int
}

// Segment 按行扫描速记文本，当前发言人只在遇到新的分隔行时改变。
// 分隔行本身和空行被丢弃，分隔行后同一行的文字作为一条发言。
func Segment(text string) []Unit {
	var (
		units    []Unit
		speaker  string
		position string
	)
	add := func(line string) {
		units = append(units, Unit{Speaker: speaker, Position: position, Text: line, Index: len(units)})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := delimiterPattern.FindStringSubmatch(line); m != nil {
			position, speaker = m[1], m[2]+m[3]
			if rest := strings.TrimSpace(m[4]); rest != "" {
				add(rest)
			}
			continue
		}
		add(line)
	}
	return units
}

// segmentDocuments 将每个文件文档拆为按发言人归属的单元文档
func segmentDocuments(_ context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range docs {
		for _, u := range Segment(doc.Content) {
			meta := map[string]any{
				common.MetaSourceFile: common.MetaString(doc, common.MetaSourceFile),
				common.MetaUnit:       u.Index,
			}
			if u.Speaker != "" {
				meta[common.MetaSpeaker] = u.Speaker
			}
			if u.Position != "" {
				meta[common.MetaPosition] = u.Position
			}
			out = append(out, &schema.Document{Content: u.Text, MetaData: meta})
		}
	}
	return out, nil
}
