package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gcache"
)

const rewriteSystemPrompt = `Given a chat history and the latest user question which might reference context in the chat history, ` +
	`formulate a standalone question which can be understood without the chat history. ` +
	`Do NOT answer the question, just reformulate it if needed and otherwise return it as is.`

// HistoryRewriter 基于对话历史把问题改写为独立问题（指代消解）
type HistoryRewriter struct {
	model           model.BaseChatModel
	enabled         bool
	maxContextTurns int
	cache           *gcache.Cache
	cacheExpire     time.Duration
}

func NewHistoryRewriter(chatModel model.BaseChatModel, enabled bool, maxContextTurns int) *HistoryRewriter {
	if maxContextTurns <= 0 {
		maxContextTurns = 3
	}
	return &HistoryRewriter{
		model:           chatModel,
		enabled:         enabled,
		maxContextTurns: maxContextTurns,
		cache:           gcache.New(),
		cacheExpire:     time.Minute * 5, // 缓存5分钟
	}
}

// Enabled 是否启用历史改写
func (r *HistoryRewriter) Enabled() bool {
	return r != nil && r.enabled
}

// Rewrite 未启用或没有历史时原样返回；模型调用失败时返回错误
func (r *HistoryRewriter) Rewrite(ctx context.Context, question string, history []*schema.Message) (string, error) {
	if !r.Enabled() || len(history) == 0 {
		return question, nil
	}

	recent := r.recentHistory(history)
	cacheKey := buildCacheKey(question, recent)
	if cached, err := r.cache.Get(ctx, cacheKey); err == nil && cached != nil {
		g.Log().Debugf(ctx, "query rewrite cache hit: [%s] -> [%s]", question, cached.String())
		return cached.String(), nil
	}

	messages := make([]*schema.Message, 0, len(recent)+2)
	messages = append(messages, schema.SystemMessage(rewriteSystemPrompt))
	messages = append(messages, recent...)
	messages = append(messages, schema.UserMessage(question))

	resp, err := r.model.Generate(ctx, messages)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRewriteFailed, "history-aware rewrite failed")
	}

	rewritten := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if rewritten == "" {
		rewritten = question
	}
	_ = r.cache.Set(ctx, cacheKey, rewritten, r.cacheExpire)

	g.Log().Infof(ctx, "query rewritten: [%s] -> [%s]", question, rewritten)
	return rewritten, nil
}

// recentHistory 只取最近 N 轮用户/助手消息
func (r *HistoryRewriter) recentHistory(history []*schema.Message) []*schema.Message {
	var turns []*schema.Message
	for _, msg := range history {
		if msg.Role == schema.User || (msg.Role == schema.Assistant && len(msg.ToolCalls) == 0) {
			turns = append(turns, &schema.Message{Role: msg.Role, Content: msg.Content})
		}
	}
	if limit := r.maxContextTurns * 2; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

func buildCacheKey(question string, history []*schema.Message) string {
	var sb strings.Builder
	sb.WriteString(question)
	for _, msg := range history {
		content := []rune(msg.Content)
		if len(content) > 50 {
			content = content[:50]
		}
		fmt.Fprintf(&sb, "|%s:%s", msg.Role, string(content))
	}
	return "query_rewrite:" + sb.String()
}
