package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Malowking/parlrag/core/common"
	coreErrors "github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

const ragTemplate = `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.
Question: {question}
Context: {context}
Answer:`

// FormatSystemPrompt 最终格式化阶段的系统提示
const FormatSystemPrompt = "Format the docs to human readable format and display sources as citations inline"

// Emitter 接收最终输出的增量内容
type Emitter func(delta string)

// Generator 基于检索上下文生成答案，并可对草稿做带引用的格式化
type Generator struct {
	model     model.BaseChatModel
	formatter model.BaseChatModel
	template  prompt.ChatTemplate
}

// NewGenerator formatter 为空时使用 chatModel
func NewGenerator(chatModel, formatter model.BaseChatModel) *Generator {
	if formatter == nil {
		formatter = chatModel
	}
	return &Generator{
		model:     chatModel,
		formatter: formatter,
		template:  prompt.FromMessages(schema.FString, schema.UserMessage(ragTemplate)),
	}
}

// Generate 将全部片段按顺序拼接为上下文，不做截断；超长由模型侧报错
func (gen *Generator) Generate(ctx context.Context, docs []*schema.Document, question string) (string, error) {
	messages, err := gen.template.Format(ctx, map[string]any{
		"question": question,
		"context":  common.FormatDocuments(docs),
	})
	if err != nil {
		return "", coreErrors.Wrap(err, coreErrors.ErrInternalError, "failed to format rag prompt")
	}

	resp, err := gen.model.Generate(ctx, messages)
	if err != nil {
		return "", coreErrors.Wrap(err, coreErrors.ErrLLMCallFailed, "generate answer call failed")
	}
	g.Log().Infof(ctx, "---GENERATE--- context=%d docs, answer=%d chars", len(docs), len([]rune(resp.Content)))
	return resp.Content, nil
}

// Format 流式改写草稿并内联引用，每个增量都交给 emit，返回完整文本
func (gen *Generator) Format(ctx context.Context, draft string, docs []*schema.Document, emit Emitter) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(FormatSystemPrompt),
		schema.UserMessage(draft + renderSources(docs)),
	}

	stream, err := gen.formatter.Stream(ctx, messages)
	if err != nil {
		return "", coreErrors.Wrap(err, coreErrors.ErrLLMCallFailed, "format call failed")
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", coreErrors.Wrap(err, coreErrors.ErrStreamingFailed, "format stream interrupted")
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		sb.WriteString(chunk.Content)
		if emit != nil {
			emit(chunk.Content)
		}
	}
	return sb.String(), nil
}

// renderSources 列出片段来源，供模型生成引用
func renderSources(docs []*schema.Document) string {
	if len(docs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nSources:")
	for i, doc := range docs {
		speaker := common.Speaker(doc)
		if speaker == "" {
			speaker = "Unknown speaker"
		}
		fmt.Fprintf(&sb, "\n[%d] %s, %s: %s", i+1, speaker, common.MetaString(doc, common.MetaSourceFile), doc.Content)
	}
	return sb.String()
}
