package chat

import (
	"github.com/Malowking/parlrag/internal/logic/chat"
)

type ControllerV1 struct {
	chat *chat.Chat
}

// NewV1 chat 为空时使用全局实例
func NewV1(c ...*chat.Chat) *ControllerV1 {
	if len(c) > 0 && c[0] != nil {
		return &ControllerV1{chat: c[0]}
	}
	return &ControllerV1{chat: chat.GetChat()}
}
