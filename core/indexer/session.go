package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

// sessionParser 解析抓取得到的会议 JSON 文件，渲染为带发言人分隔行的文本
type sessionParser struct{}

func (p *sessionParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := readUTF8(reader)
	if err != nil {
		return nil, err
	}

	session, err := decodeSession(data)
	if err != nil {
		return nil, err
	}

	commonOpts := parser.GetCommonOptions(nil, opts...)
	return []*schema.Document{{
		Content:  common.CleanTranscript(RenderSession(session)),
		MetaData: copyMeta(commonOpts.ExtraMeta),
	}}, nil
}

// decodeSession 支持对象或数组，数组时取第一个元素
func decodeSession(data []byte) (*common.SessionFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var sessions []*common.SessionFile
		if err := sonic.Unmarshal(data, &sessions); err != nil {
			return nil, errors.Wrap(err, errors.ErrDocumentParseFailed, "malformed session json")
		}
		if len(sessions) == 0 || sessions[0] == nil {
			return &common.SessionFile{}, nil
		}
		return sessions[0], nil
	}

	var session common.SessionFile
	if err := sonic.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, errors.ErrDocumentParseFailed, "malformed session json")
	}
	return &session, nil
}

// RenderSession 渲染为纯文本，每条发言以 "职位 (ID: 姓名):" 开头
func RenderSession(s *common.SessionFile) string {
	title, date := "No Title", "No Date"
	if s.ParlSession != nil {
		if s.ParlSession.Title != "" {
			title = s.ParlSession.Title
		}
		if s.ParlSession.Date != "" {
			date = s.ParlSession.Date
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session Title: %s\nDate: %s\nTotal Statements: %d\nTotal Participants: %d\n\n",
		title, date, s.StatementCount, s.PersonCount)

	for _, st := range s.SessionStatements {
		if st == nil {
			continue
		}
		position, person := st.Position, st.Title
		if position == "" {
			position = "Unknown Position"
		}
		if person == "" {
			person = "Unknown Person"
		}
		fmt.Fprintf(&sb, "%s (ID: %s):\n%s\n\n", position, person, strings.Join(st.Paragraphs, " "))
	}
	return sb.String()
}

// textParser 纯文本解析，拒绝非 UTF-8 内容
type textParser struct{}

func (p *textParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) ([]*schema.Document, error) {
	data, err := readUTF8(reader)
	if err != nil {
		return nil, err
	}
	commonOpts := parser.GetCommonOptions(nil, opts...)
	return []*schema.Document{{
		Content:  common.CleanTranscript(string(data)),
		MetaData: copyMeta(commonOpts.ExtraMeta),
	}}, nil
}

func readUTF8(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileReadFailed, "read file")
	}
	if !utf8.Valid(data) {
		return nil, errors.New(errors.ErrDocumentParseFailed, "file is not valid UTF-8")
	}
	return data, nil
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// newParser 按扩展名选择解析器，未知扩展名按纯文本处理
func newParser(ctx context.Context) (parser.Parser, error) {
	text := &textParser{}
	return parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers: map[string]parser.Parser{
			".json": &sessionParser{},
			".txt":  text,
		},
		FallbackParser: text,
	})
}
