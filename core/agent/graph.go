package agent

import (
	"context"

	"github.com/Malowking/parlrag/core/conversation"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/generator"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
)

const (
	nodeAgent = "agent"
	nodeTools = "tools"
	nodeFinal = "final"
)

const systemPrompt = `You are an assistant that answers questions about Bulgarian parliamentary sessions.
Use the tools in this order:
1. Call retrieve_parliament_session_statements with a search query built from the user's question.
2. Call grade_documents to keep only the relevant statements.
3. Call decide_to_generate. If it returns "transformQuery", call transform_query and retrieve again with the improved question.
4. When it returns "generate", call generate_answer.
Reply with the generated answer and always mention which politician said what.
If no relevant statements can be found, say that you don't know.`

// turnState 单轮对话的可变状态，只在一次 Run 内有效
type turnState struct {
	conv     *conversation.Conversation
	messages []*schema.Message // 发送给模型的完整消息序列
	history  []*schema.Message // 当前用户消息之前的会话历史

	question   string
	documents  []*schema.Document
	generation string

	hops       int
	toolRounds int
	draftID    string
	emit       generator.Emitter
	failure    error // 节点返回的原始错误
}

type stateKey struct{}

func withState(ctx context.Context, s *turnState) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func stateFrom(ctx context.Context) *turnState {
	if s, ok := ctx.Value(stateKey{}).(*turnState); ok {
		return s
	}
	return &turnState{conv: conversation.New("")}
}

// withTurn 在本轮状态上执行 fn，并记录第一个失败
func withTurn(ctx context.Context, fn func(context.Context, *turnState) error) error {
	return compose.ProcessState(ctx, func(ctx context.Context, s *turnState) error {
		err := fn(ctx, s)
		if err != nil && s.failure == nil {
			s.failure = err
		}
		return err
	})
}

func (s *turnState) emitDelta(delta string) {
	if s.emit != nil && delta != "" {
		s.emit(delta)
	}
}

// buildGraph agent -> (tools -> agent)* -> [final] -> END
func (a *Agent) buildGraph(ctx context.Context) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message](
		compose.WithGenLocalState[*turnState](stateFrom),
	)

	if err := graph.AddLambdaNode(nodeAgent, compose.InvokableLambda(a.agentNode)); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode(nodeTools, compose.InvokableLambda(a.toolsNode)); err != nil {
		return nil, err
	}

	ends := map[string]bool{nodeTools: true, compose.END: true}
	if a.format {
		if err := graph.AddLambdaNode(nodeFinal, compose.InvokableLambda(a.finalNode)); err != nil {
			return nil, err
		}
		ends[nodeFinal] = true
	}

	if err := graph.AddEdge(compose.START, nodeAgent); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(func(ctx context.Context, msg *schema.Message) (string, error) {
		if len(msg.ToolCalls) > 0 {
			return nodeTools, nil
		}
		if a.format {
			return nodeFinal, nil
		}
		return compose.END, nil
	}, ends)
	if err := graph.AddBranch(nodeAgent, branch); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(nodeTools, nodeAgent); err != nil {
		return nil, err
	}
	if a.format {
		if err := graph.AddEdge(nodeFinal, compose.END); err != nil {
			return nil, err
		}
	}

	return graph.Compile(ctx,
		compose.WithGraphName("parlrag_agent"),
		compose.WithMaxRunSteps(3*a.maxHops+10),
	)
}

// agentNode 调用模型；没有工具调用时把回复作为草稿写入会话
func (a *Agent) agentNode(ctx context.Context, in []*schema.Message) (*schema.Message, error) {
	var out *schema.Message
	err := withTurn(ctx, func(ctx context.Context, s *turnState) error {
		s.hops++
		if s.hops > a.maxHops {
			return errors.Newf(errors.ErrHopLimitExceeded, "agent exceeded %d hops", a.maxHops)
		}
		s.messages = append(s.messages, in...)

		resp, err := a.model.Generate(ctx, s.messages)
		if err != nil {
			return errors.Wrap(err, errors.ErrLLMCallFailed, "agent model call failed")
		}
		s.messages = append(s.messages, resp)
		out = resp

		if len(resp.ToolCalls) > 0 {
			return nil
		}
		content := or(resp.Content, s.generation)
		s.draftID = s.conv.Append(schema.Assistant, content).ID
		if !a.format {
			s.emitDelta(content)
		}
		g.Log().Debugf(ctx, "agent finished after %d hops", s.hops)
		return nil
	})
	return out, err
}

// toolsNode 依次执行工具调用。未知工具或非法参数作为错误信息返回给模型，组件错误终止本轮
func (a *Agent) toolsNode(ctx context.Context, msg *schema.Message) ([]*schema.Message, error) {
	var out []*schema.Message
	err := withTurn(ctx, func(ctx context.Context, s *turnState) error {
		s.toolRounds++
		for _, tc := range msg.ToolCalls {
			call, err := decodeToolCall(tc, a.webSearch != nil)
			if err != nil {
				g.Log().Warningf(ctx, "rejected tool call %s: %v", tc.Function.Name, err)
				out = append(out, schema.ToolMessage("error: "+err.Error(), tc.ID))
				continue
			}
			content, err := a.dispatch(ctx, s, call)
			if err != nil {
				return err
			}
			out = append(out, schema.ToolMessage(content, tc.ID))
		}
		return nil
	})
	return out, err
}

// finalNode 流式格式化草稿，并按 ID 覆盖会话中的草稿消息
func (a *Agent) finalNode(ctx context.Context, draft *schema.Message) (*schema.Message, error) {
	var out *schema.Message
	err := withTurn(ctx, func(ctx context.Context, s *turnState) error {
		formatted, err := a.generator.Format(ctx, or(draft.Content, s.generation), s.documents, s.emitDelta)
		if err != nil {
			return err
		}
		if err = s.conv.Amend(s.draftID, formatted); err != nil {
			return err
		}
		out = schema.AssistantMessage(formatted, nil)
		return nil
	})
	return out, err
}
