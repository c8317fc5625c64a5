package chat

import (
	"context"
	"strings"

	"github.com/Malowking/parlrag/core/agent"
	"github.com/Malowking/parlrag/core/conversation"
	coreErrors "github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/core/generator"
	"github.com/Malowking/parlrag/core/metrics"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gctx"
)

var chatInstance *Chat

// Chat 处理单个会话的一轮对话：加载会话、运行 agent、成功后保存
type Chat struct {
	agent *agent.Agent
	store conversation.Store
	locks *sessionLocks
}

// TurnResult 一轮对话的结果
type TurnResult struct {
	SessionID string
	Question  string // 用户原始问题
	Response  string
	MessageID string
}

func GetChat() *Chat {
	return chatInstance
}

// InitChat 初始化全局实例
func InitChat(a *agent.Agent, store conversation.Store) {
	ctx := gctx.New()
	g.Log().Info(ctx, "Initializing chat service...")
	chatInstance = NewChat(a, store)
	g.Log().Info(ctx, "Chat service initialized successfully")
}

func NewChat(a *agent.Agent, store conversation.Store) *Chat {
	return &Chat{agent: a, store: store, locks: newSessionLocks()}
}

// Turn 处理一条用户消息。emit 只接收最终输出的增量，可以为 nil。
// 同一会话的多轮请求在进程内串行执行；失败的轮次不保存任何内容。
func (x *Chat) Turn(ctx context.Context, sessionID, humanMessage string, emit generator.Emitter) (res *TurnResult, err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ChatTurns.WithLabelValues(status).Inc()
	}()

	if strings.TrimSpace(humanMessage) == "" {
		return nil, coreErrors.New(coreErrors.ErrInvalidParameter, "humanMessage is empty")
	}

	x.locks.Lock(sessionID)
	defer x.locks.Unlock(sessionID)

	conv, err := x.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	conv.Append(schema.User, humanMessage)

	result, err := x.agent.Run(ctx, conv, emit)
	if err != nil {
		g.Log().Errorf(ctx, "chat turn failed, sessionId=%s: %v", sessionID, err)
		return nil, err
	}

	if err = x.store.Save(ctx, conv); err != nil {
		return nil, err
	}
	g.Log().Infof(ctx, "chat turn done, sessionId=%s, hops=%d, toolRounds=%d, messages=%d",
		sessionID, result.Hops, result.ToolRounds, len(conv.Messages))

	return &TurnResult{
		SessionID: sessionID,
		Question:  humanMessage,
		Response:  result.Answer,
		MessageID: result.DraftID,
	}, nil
}
