package model

// 对话角色，与 Gemini API 的 role 字段保持一致
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Part struct {
	Text string `json:"text"`
}

// Content 一轮对话内容，parts 顺序不可变
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// ChatMessage 前端侧的消息单元，时间戳仅用于 UI 排序，不会发送给上游
type ChatMessage struct {
	Content
	Timestamp int64 `json:"timestamp"`
}

// NewUserTurn 构造一条用户消息
func NewUserTurn(text string) Content {
	return Content{
		Role:  RoleUser,
		Parts: []Part{{Text: text}},
	}
}

// Text 返回该轮对话的首个文本片段
func (c Content) Text() string {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[0].Text
}
