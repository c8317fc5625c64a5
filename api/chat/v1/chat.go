package v1

import (
	"github.com/gogf/gf/v2/frame/g"
)

type ChatReq struct {
	g.Meta       `path:"/chat" method:"post" tags:"chat" summary:"Send a message to the parliament assistant" no_wrap_resp:"true"`
	Name         string `json:"name"` // 客户端名称，原样返回
	SessionID    string `json:"sessionId" v:"required#sessionId is required"`
	HumanMessage string `json:"humanMessage" v:"required#humanMessage is required"`
	Stream       bool   `json:"stream"` // 是否流式返回纯文本
}

type ChatRes struct {
	g.Meta    `mime:"application/json"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	Response  string `json:"response"`
}
