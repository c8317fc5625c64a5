package agent

import (
	"context"

	"github.com/Malowking/parlrag/core/conversation"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/generator"
	"github.com/Malowking/parlrag/core/grader"
	"github.com/Malowking/parlrag/core/metrics"
	"github.com/Malowking/parlrag/core/websearch"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

// 组件接口

type Rewriter interface {
	Rewrite(ctx context.Context, question string, history []*schema.Message) (string, error)
}

type Grader interface {
	Grade(ctx context.Context, docs []*schema.Document, question string) ([]*schema.Document, []grader.Decision, error)
}

type QueryTransformer interface {
	Transform(ctx context.Context, question string) (string, error)
}

type AnswerGenerator interface {
	Generate(ctx context.Context, docs []*schema.Document, question string) (string, error)
	Format(ctx context.Context, draft string, docs []*schema.Document, emit generator.Emitter) (string, error)
}

type WebSearcher interface {
	Search(ctx context.Context, query string) ([]*websearch.Result, error)
}

// Config agent 依赖的组件与参数，Rewriter 和 WebSearch 可为空
type Config struct {
	Model       model.ToolCallingChatModel
	Retriever   retriever.Retriever
	Rewriter    Rewriter
	Grader      Grader
	Transformer QueryTransformer
	Generator   AnswerGenerator
	WebSearch   WebSearcher

	TopK    int
	MaxHops int  // agent 节点在一轮中的最大执行次数
	Format  bool // 是否执行最终格式化
}

// Result 一轮对话的结果
type Result struct {
	Answer     string
	DraftID    string // 最终助手消息在会话中的 ID，格式化只覆盖其内容
	Question   string
	Documents  []*schema.Document
	Hops       int
	ToolRounds int
}

// Agent 对话编排器。同一实例可被多个会话并发使用，每轮的状态互相独立。
type Agent struct {
	model       model.BaseChatModel
	retriever   retriever.Retriever
	rewriter    Rewriter
	grader      Grader
	transformer QueryTransformer
	generator   AnswerGenerator
	webSearch   WebSearcher

	topK    int
	maxHops int
	format  bool

	runnable compose.Runnable[[]*schema.Message, *schema.Message]
}

func NewAgent(ctx context.Context, conf *Config) (*Agent, error) {
	if conf.Model == nil || conf.Retriever == nil || conf.Grader == nil || conf.Transformer == nil || conf.Generator == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "agent requires model, retriever, grader, transformer and generator")
	}
	if conf.MaxHops <= 0 {
		conf.MaxHops = 10
	}
	if conf.TopK <= 0 {
		conf.TopK = 6
	}

	bound, err := conf.Model.WithTools(toolInfos(conf.WebSearch != nil))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrModelConfigInvalid, "failed to bind agent tools")
	}

	a := &Agent{
		model:       bound,
		retriever:   conf.Retriever,
		rewriter:    conf.Rewriter,
		grader:      conf.Grader,
		transformer: conf.Transformer,
		generator:   conf.Generator,
		webSearch:   conf.WebSearch,
		topK:        conf.TopK,
		maxHops:     conf.MaxHops,
		format:      conf.Format,
	}
	if a.runnable, err = a.buildGraph(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternalError, "failed to compile agent graph")
	}
	return a, nil
}

// Run 处理会话最后一条用户消息。
// 最终答案作为新的助手消息追加到 conv；启用格式化时该消息按 ID 原地覆盖为格式化结果。
// 只有最终输出会经过 emit，中间的工具调用只写日志。失败时 conv 不被修改。
func (a *Agent) Run(ctx context.Context, conv *conversation.Conversation, emit generator.Emitter) (*Result, error) {
	last := conv.Last()
	if last == nil || last.Role != schema.User {
		return nil, errors.New(errors.ErrInvalidParameter, "conversation must end with a user message")
	}

	turn := conv.Clone()
	history := turn.History()
	state := &turnState{
		conv:     turn,
		history:  history[:len(history)-1],
		question: last.Content,
		emit:     emit,
	}

	input := make([]*schema.Message, 0, len(history)+1)
	input = append(input, schema.SystemMessage(systemPrompt))
	input = append(input, history...)

	_, err := a.runnable.Invoke(withState(ctx, state), input, compose.WithCallbacks(newLogHandler()))
	metrics.AgentHops.Observe(float64(state.hops))
	if err != nil {
		g.Log().Errorf(ctx, "agent turn failed after %d hops: %v", state.hops, err)
		if state.failure != nil {
			err = state.failure
		}
		if appErr := errors.GetAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, errors.Wrap(err, errors.ErrChatFailed, "agent turn failed")
	}

	conv.Messages = turn.Messages
	final := conv.Last()
	return &Result{
		Answer:     final.Content,
		DraftID:    final.ID,
		Question:   state.question,
		Documents:  state.documents,
		Hops:       state.hops,
		ToolRounds: state.toolRounds,
	}, nil
}
