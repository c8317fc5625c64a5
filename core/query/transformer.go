package query

import (
	"context"
	"strings"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

const transformTemplate = `You are generating a question that is well optimized for semantic search retrieval.
Look at the input and try to reason about the underlying semantic intent / meaning.
Here is the initial question:
 -------
{question}
 -------
Formulate an improved question: `

// Transformer 把问题改写为更适合向量检索的形式。
// 重复调用不保证收敛，调用方负责限制次数。
type Transformer struct {
	model    model.BaseChatModel
	template prompt.ChatTemplate
}

func NewTransformer(chatModel model.BaseChatModel) *Transformer {
	return &Transformer{
		model:    chatModel,
		template: prompt.FromMessages(schema.FString, schema.UserMessage(transformTemplate)),
	}
}

// Transform 模型返回空内容时保留原问题
func (t *Transformer) Transform(ctx context.Context, question string) (string, error) {
	messages, err := t.template.Format(ctx, map[string]any{"question": question})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternalError, "failed to format transform prompt")
	}

	resp, err := t.model.Generate(ctx, messages)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrLLMCallFailed, "transform query call failed")
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		g.Log().Warningf(ctx, "query transformer returned empty content, keeping: %s", question)
		return question, nil
	}
	g.Log().Infof(ctx, "---TRANSFORM QUERY--- [%s] -> [%s]", question, rewritten)
	return rewritten, nil
}
