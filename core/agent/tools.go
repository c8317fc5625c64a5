package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/metrics"
	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

// 工具名称
const (
	ToolRetrieve  = "retrieve_parliament_session_statements"
	ToolGrade     = "grade_documents"
	ToolTransform = "transform_query"
	ToolDecide    = "decide_to_generate"
	ToolGenerate  = "generate_answer"
	ToolWebSearch = "tavily_search_results_json"
)

// decide_to_generate 的两种结果
const (
	DecisionGenerate       = "generate"
	DecisionTransformQuery = "transformQuery"
)

// toolCall 工具调用的封闭集合，每种工具对应一个强类型参数结构
type toolCall interface {
	toolName() string
}

type retrieveCall struct {
	Query string `json:"query"`
}

type gradeCall struct {
	Question string `json:"question,omitempty"`
}

type transformCall struct {
	Question string `json:"question,omitempty"`
}

type decideCall struct{}

type generateCall struct {
	Question string `json:"question,omitempty"`
}

type webSearchCall struct {
	Query string `json:"query"`
}

func (retrieveCall) toolName() string  { return ToolRetrieve }
func (gradeCall) toolName() string     { return ToolGrade }
func (transformCall) toolName() string { return ToolTransform }
func (decideCall) toolName() string    { return ToolDecide }
func (generateCall) toolName() string  { return ToolGenerate }
func (webSearchCall) toolName() string { return ToolWebSearch }

// decodeToolCall 按名称解码参数；未知工具或参数非法时返回 ErrUnknownTool / ErrInvalidParameter
func decodeToolCall(tc schema.ToolCall, webSearch bool) (toolCall, error) {
	args := strings.TrimSpace(tc.Function.Arguments)
	if args == "" {
		args = "{}"
	}

	var (
		call toolCall
		err  error
	)
	switch tc.Function.Name {
	case ToolRetrieve:
		var c retrieveCall
		err = sonic.UnmarshalString(args, &c)
		if err == nil && strings.TrimSpace(c.Query) == "" {
			err = fmt.Errorf("query is required")
		}
		call = c
	case ToolGrade:
		var c gradeCall
		err = sonic.UnmarshalString(args, &c)
		call = c
	case ToolTransform:
		var c transformCall
		err = sonic.UnmarshalString(args, &c)
		call = c
	case ToolDecide:
		call = decideCall{}
	case ToolGenerate:
		var c generateCall
		err = sonic.UnmarshalString(args, &c)
		call = c
	case ToolWebSearch:
		if !webSearch {
			return nil, errors.Newf(errors.ErrUnknownTool, "unknown tool: %s", tc.Function.Name)
		}
		var c webSearchCall
		err = sonic.UnmarshalString(args, &c)
		if err == nil && strings.TrimSpace(c.Query) == "" {
			err = fmt.Errorf("query is required")
		}
		call = c
	default:
		return nil, errors.Newf(errors.ErrUnknownTool, "unknown tool: %s", tc.Function.Name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidParameter, "invalid arguments for %s", tc.Function.Name)
	}
	return call, nil
}

// dispatch 执行一次工具调用并更新本轮状态，返回工具消息内容。
// 组件错误直接返回，由调用方终止本轮。
func (a *Agent) dispatch(ctx context.Context, s *turnState, call toolCall) (string, error) {
	metrics.ToolCalls.WithLabelValues(call.toolName()).Inc()

	switch c := call.(type) {
	case retrieveCall:
		query := c.Query
		if a.rewriter != nil {
			rewritten, err := a.rewriter.Rewrite(ctx, query, s.history)
			if err != nil {
				return "", err
			}
			query = rewritten
		}
		docs, err := a.retriever.Retrieve(ctx, query, retriever.WithTopK(a.topK))
		if err != nil {
			return "", errors.Wrap(err, errors.ErrRetrievalFailed, "retrieve statements")
		}
		s.question = query
		s.documents = docs
		g.Log().Infof(ctx, "---RETRIEVE--- query=%s, docs=%d", query, len(docs))
		return renderStatements(docs, "No statements found."), nil

	case gradeCall:
		question := or(c.Question, s.question)
		relevant, _, err := a.grader.Grade(ctx, s.documents, question)
		if err != nil {
			return "", err
		}
		total := len(s.documents)
		s.documents = relevant
		return fmt.Sprintf("%d of %d statements are relevant.\n%s", len(relevant), total,
			renderStatements(relevant, "No relevant statements found.")), nil

	case transformCall:
		rewritten, err := a.transformer.Transform(ctx, or(c.Question, s.question))
		if err != nil {
			return "", err
		}
		s.question = rewritten
		return rewritten, nil

	case decideCall:
		if len(s.documents) == 0 {
			g.Log().Info(ctx, "---DECISION: TRANSFORM QUERY---")
			return DecisionTransformQuery, nil
		}
		g.Log().Info(ctx, "---DECISION: GENERATE---")
		return DecisionGenerate, nil

	case generateCall:
		answer, err := a.generator.Generate(ctx, s.documents, or(c.Question, s.question))
		if err != nil {
			return "", err
		}
		s.generation = answer
		return answer, nil

	case webSearchCall:
		results, err := a.webSearch.Search(ctx, c.Query)
		if err != nil {
			return "", err
		}
		out, err := sonic.MarshalString(results)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrInternalError, "encode search results")
		}
		return out, nil

	default:
		return "", errors.Newf(errors.ErrUnknownTool, "unhandled tool: %s", call.toolName())
	}
}

// toolInfos 暴露给模型的工具定义
func toolInfos(webSearch bool) []*schema.ToolInfo {
	questionParam := map[string]*schema.ParameterInfo{
		"question": {Type: schema.String, Desc: "The question to use. Defaults to the current question."},
	}
	infos := []*schema.ToolInfo{
		{
			Name: ToolRetrieve,
			Desc: "Search and return statements from the parliament session, including which politicians said what and what they talked about.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "The search query", Required: true},
			}),
		},
		{
			Name:        ToolGrade,
			Desc:        "Grade the retrieved statements based on relevance to a question and keep only the relevant ones. Always use this tool before using statements in a response.",
			ParamsOneOf: schema.NewParamsOneOfByParams(questionParam),
		},
		{
			Name:        ToolTransform,
			Desc:        "Transform a query to produce a better question for semantic search.",
			ParamsOneOf: schema.NewParamsOneOfByParams(questionParam),
		},
		{
			Name:        ToolDecide,
			Desc:        "Decide whether to generate an answer or transform the query based on the availability of relevant statements. Returns 'generate' or 'transformQuery'.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name:        ToolGenerate,
			Desc:        "Generate an answer from the relevant statements and the question.",
			ParamsOneOf: schema.NewParamsOneOfByParams(questionParam),
		},
	}
	if webSearch {
		infos = append(infos, &schema.ToolInfo{
			Name: ToolWebSearch,
			Desc: "A search engine optimized for comprehensive, accurate, and trusted results. Useful for when you need to answer questions about current events.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "The search query", Required: true},
			}),
		})
	}
	return infos
}

// renderStatements 带编号与发言人的片段列表
func renderStatements(docs []*schema.Document, empty string) string {
	if len(docs) == 0 {
		return empty
	}
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, common.RenderStatement(doc))
		if src := common.MetaString(doc, common.MetaSourceFile); src != "" {
			fmt.Fprintf(&sb, " (source: %s)", src)
		}
	}
	return sb.String()
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
