package chat

import (
	"context"

	v1 "github.com/Malowking/parlrag/api/chat/v1"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
)

const contentTypeTextPlain = "text/plain; charset=utf-8"

func (c *ControllerV1) Chat(ctx context.Context, req *v1.ChatReq) (res *v1.ChatRes, err error) {
	if req.Stream {
		return nil, c.handleStreamChat(ctx, req)
	}

	turn, err := c.chat.Turn(ctx, req.SessionID, req.HumanMessage, nil)
	if err != nil {
		return nil, err
	}
	return &v1.ChatRes{
		Name:      req.Name,
		SessionID: req.SessionID,
		Question:  turn.Question,
		Response:  turn.Response,
	}, nil
}

// handleStreamChat 以纯文本逐段写出最终回答。
// 第一个增量写出前出错时返回错误，由中间件输出错误响应；之后出错只能中断输出。
func (c *ControllerV1) handleStreamChat(ctx context.Context, req *v1.ChatReq) error {
	r := g.RequestFromCtx(ctx)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		r.Response.Header().Set("Content-Type", contentTypeTextPlain)
		r.Response.Header().Set("Cache-Control", "no-cache")
		r.Response.Header().Set("X-Accel-Buffering", "no")
	}

	_, err := c.chat.Turn(ctx, req.SessionID, req.HumanMessage, func(delta string) {
		start()
		writeDelta(r.Response, delta)
	})
	if err != nil {
		if !started {
			return err
		}
		g.Log().Errorf(ctx, "stream interrupted, sessionId=%s: %v", req.SessionID, err)
		return nil
	}
	start()
	return nil
}

func writeDelta(resp *ghttp.Response, delta string) {
	if delta == "" {
		return
	}
	resp.Write(delta)
	resp.Flush()
}
