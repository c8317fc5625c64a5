package grader

import (
	"context"
	"strings"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/metrics"
	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"golang.org/x/sync/errgroup"
)

// GradeToolName 模型通过调用该工具返回结构化评分
const GradeToolName = "grade"

const gradeTemplate = `You are a grader assessing relevance of a retrieved document to a user question.
Here is the retrieved document:

{context}

The document is a statement by: {speaker}

Here is the user question: {question}

If the document contains keyword(s) or semantic meaning related to the user question, grade it as relevant.
If the question names a politician, the statement must be by that politician to be relevant.
Give a binary score 'yes' or 'no' score to indicate whether the document is relevant to the question.`

// Decision 单个片段的评分结果
type Decision struct {
	Relevant bool
	Reason   string
}

type gradeOutput struct {
	BinaryScore string `json:"binaryScore"`
	Reason      string `json:"reason,omitempty"`
}

// Grader 逐片段判断与问题的相关性，片段之间互不影响
type Grader struct {
	model       model.BaseChatModel
	template    prompt.ChatTemplate
	withReason  bool
	concurrency int
}

// NewGrader chatModel 会绑定 grade 工具；concurrency 为 1 时按顺序逐个评分
func NewGrader(chatModel model.ToolCallingChatModel, withReason bool, concurrency int) (*Grader, error) {
	bound, err := chatModel.WithTools([]*schema.ToolInfo{gradeTool(withReason)})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrModelConfigInvalid, "failed to bind grade tool")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Grader{
		model:       bound,
		template:    prompt.FromMessages(schema.FString, schema.UserMessage(gradeTemplate)),
		withReason:  withReason,
		concurrency: concurrency,
	}, nil
}

func gradeTool(withReason bool) *schema.ToolInfo {
	params := map[string]*schema.ParameterInfo{
		"binaryScore": {
			Type:     schema.String,
			Desc:     "Relevance score 'yes' or 'no'",
			Enum:     []string{"yes", "no"},
			Required: true,
		},
	}
	if withReason {
		params["reason"] = &schema.ParameterInfo{
			Type: schema.String,
			Desc: "Short explanation of the decision",
		}
	}
	return &schema.ToolInfo{
		Name:        GradeToolName,
		Desc:        "Report whether the document is relevant to the question",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// Grade 返回相关片段（保持输入顺序，不新增）以及与输入一一对应的评分。
// 输入为空时不调用模型；任一评分无法解析为 yes/no 时整体失败。
func (gr *Grader) Grade(ctx context.Context, docs []*schema.Document, question string) ([]*schema.Document, []Decision, error) {
	if len(docs) == 0 {
		return []*schema.Document{}, nil, nil
	}

	decisions := make([]Decision, len(docs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(gr.concurrency)
	for i, doc := range docs {
		eg.Go(func() error {
			d, err := gr.gradeOne(egCtx, doc, question)
			if err != nil {
				return err
			}
			decisions[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	relevant := make([]*schema.Document, 0, len(docs))
	for i, doc := range docs {
		if decisions[i].Relevant {
			g.Log().Infof(ctx, "---GRADE: DOCUMENT RELEVANT--- speaker=%s reason=%s", common.Speaker(doc), decisions[i].Reason)
			metrics.GradeDecisions.WithLabelValues("yes").Inc()
			relevant = append(relevant, doc)
		} else {
			g.Log().Infof(ctx, "---GRADE: DOCUMENT NOT RELEVANT--- speaker=%s reason=%s", common.Speaker(doc), decisions[i].Reason)
			metrics.GradeDecisions.WithLabelValues("no").Inc()
		}
	}
	return relevant, decisions, nil
}

func (gr *Grader) gradeOne(ctx context.Context, doc *schema.Document, question string) (Decision, error) {
	speaker := common.Speaker(doc)
	if speaker == "" {
		speaker = "unknown"
	}
	messages, err := gr.template.Format(ctx, map[string]any{
		"context":  doc.Content,
		"speaker":  speaker,
		"question": question,
	})
	if err != nil {
		return Decision{}, errors.Wrap(err, errors.ErrInternalError, "failed to format grade prompt")
	}

	resp, err := gr.model.Generate(ctx, messages)
	if err != nil {
		return Decision{}, errors.Wrap(err, errors.ErrLLMCallFailed, "grade call failed")
	}
	return parseDecision(resp)
}

// parseDecision 优先读取 grade 工具参数，否则尝试把正文当作 JSON
func parseDecision(resp *schema.Message) (Decision, error) {
	raw := ""
	for _, tc := range resp.ToolCalls {
		if tc.Function.Name == GradeToolName {
			raw = tc.Function.Arguments
			break
		}
	}
	if raw == "" {
		raw = stripCodeFence(resp.Content)
	}

	var out gradeOutput
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return Decision{}, errors.Wrapf(err, errors.ErrStructuredOutput, "grade output is not valid JSON: %q", raw)
	}
	switch strings.ToLower(strings.TrimSpace(out.BinaryScore)) {
	case "yes":
		return Decision{Relevant: true, Reason: out.Reason}, nil
	case "no":
		return Decision{Relevant: false, Reason: out.Reason}, nil
	default:
		return Decision{}, errors.Newf(errors.ErrStructuredOutput, "binaryScore must be 'yes' or 'no', got %q", out.BinaryScore)
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
