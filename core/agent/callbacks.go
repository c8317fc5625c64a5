package agent

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/gogf/gf/v2/frame/g"
)

// newLogHandler 记录图中各节点的执行情况，中间步骤只写日志不输出给用户
func newLogHandler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			if info != nil {
				g.Log().Debugf(ctx, "[agent] start node=%s type=%s component=%s", info.Name, info.Type, info.Component)
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			if info != nil {
				g.Log().Debugf(ctx, "[agent] end node=%s", info.Name)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			name := ""
			if info != nil {
				name = info.Name
			}
			g.Log().Warningf(ctx, "[agent] node=%s failed: %v", name, err)
			return ctx
		}).
		Build()
}
