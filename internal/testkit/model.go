// Package testkit 提供测试用的模型替身：可编排回复的对话模型和确定性的向量化模型
package testkit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RespondFunc 根据输入消息和当前绑定的工具生成回复
type RespondFunc func(ctx context.Context, input []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)

// ScriptedModel 实现 model.ToolCallingChatModel，回复由 RespondFunc 决定
type ScriptedModel struct {
	respond RespondFunc
	tools   []*schema.ToolInfo
	calls   *atomic.Int64

	mu     *sync.Mutex
	inputs *[][]*schema.Message
}

func NewScriptedModel(respond RespondFunc) *ScriptedModel {
	return &ScriptedModel{
		respond: respond,
		calls:   &atomic.Int64{},
		mu:      &sync.Mutex{},
		inputs:  &[][]*schema.Message{},
	}
}

// Replies 按顺序返回给定的回复，用完后重复最后一条
func Replies(msgs ...*schema.Message) *ScriptedModel {
	var idx atomic.Int64
	return NewScriptedModel(func(context.Context, []*schema.Message, []*schema.ToolInfo) (*schema.Message, error) {
		i := int(idx.Add(1) - 1)
		if i >= len(msgs) {
			i = len(msgs) - 1
		}
		return msgs[i], nil
	})
}

func (m *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls.Add(1)
	m.mu.Lock()
	*m.inputs = append(*m.inputs, input)
	m.mu.Unlock()
	return m.respond(ctx, input, m.tools)
}

// Stream 将完整回复按词切分为多个增量
func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	var chunks []*schema.Message
	for _, part := range SplitWords(msg.Content) {
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, Content: part})
	}
	if len(msg.ToolCalls) > 0 || len(chunks) == 0 {
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, ToolCalls: msg.ToolCalls})
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *ScriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *m
	clone.tools = tools
	return &clone, nil
}

// Calls 返回所有副本共享的调用次数
func (m *ScriptedModel) Calls() int {
	return int(m.calls.Load())
}

// Inputs 返回每次调用的输入
func (m *ScriptedModel) Inputs() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), *m.inputs...)
}

// SplitWords 切分为保留空白的片段，拼接后等于原文
func SplitWords(s string) []string {
	var parts []string
	for len(s) > 0 {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			parts = append(parts, s)
			break
		}
		parts = append(parts, s[:i+1])
		s = s[i+1:]
	}
	return parts
}

// ToolCall 构造一条请求调用工具的助手消息
func ToolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

// LastUserText 返回输入中最后一条用户消息的内容
func LastUserText(input []*schema.Message) string {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i].Role == schema.User {
			return input[i].Content
		}
	}
	return ""
}

// HasTool 当前是否绑定了指定名称的工具
func HasTool(tools []*schema.ToolInfo, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}
