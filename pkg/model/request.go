package model

import "encoding/json"

// 请求类型标签，payload 结构随标签变化
const (
	RequestTypeChat  = "chat"
	RequestTypeText  = "text"
	RequestTypeCode  = "code"
	RequestTypeImage = "image"
)

// GenerateRequest 统一请求信封 {type, payload}
type GenerateRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

type ChatPayload struct {
	History []Content `json:"history"`
}

type PromptPayload struct {
	Prompt string `json:"prompt"`
}

type ImagePayload struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

// 支持的宽高比枚举
var validAspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

func ValidAspectRatio(ratio string) bool {
	return validAspectRatios[ratio]
}
