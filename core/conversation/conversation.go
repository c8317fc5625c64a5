// Package conversation 会话消息历史：按插入顺序追加，唯一允许的修改是按 ID 覆盖内容
package conversation

import (
	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// Message 带稳定 ID 的会话消息
type Message struct {
	ID      string          `json:"id"`
	Role    schema.RoleType `json:"role"`
	Content string          `json:"content"`
}

// Conversation 一个会话的完整消息序列
type Conversation struct {
	SessionID string     `json:"sessionId"`
	Messages  []*Message `json:"messages"`
}

func New(sessionID string) *Conversation {
	return &Conversation{SessionID: sessionID, Messages: []*Message{}}
}

// Append 追加一条消息并返回它，ID 自动生成
func (c *Conversation) Append(role schema.RoleType, content string) *Message {
	msg := &Message{ID: uuid.NewString(), Role: role, Content: content}
	c.Messages = append(c.Messages, msg)
	return msg
}

// Amend 按 ID 覆盖消息内容，位置与 ID 不变
func (c *Conversation) Amend(id, content string) error {
	for _, msg := range c.Messages {
		if msg.ID == id {
			msg.Content = content
			return nil
		}
	}
	return errors.Newf(errors.ErrMessageNotFound, "message %s not found in session %s", id, c.SessionID)
}

// Last 最后一条消息，会话为空时返回 nil
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// History 转换为模型消息
func (c *Conversation) History() []*schema.Message {
	out := make([]*schema.Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		out = append(out, &schema.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// Clone 深拷贝，存储实现用它隔离调用方的修改
func (c *Conversation) Clone() *Conversation {
	out := &Conversation{SessionID: c.SessionID, Messages: make([]*Message, len(c.Messages))}
	for i, msg := range c.Messages {
		m := *msg
		out.Messages[i] = &m
	}
	return out
}
