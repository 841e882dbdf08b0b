package service

import "errors"

var (
	// ErrAPIKeyMissing 服务端未配置密钥，任何操作直接失败，不触达上游
	ErrAPIKeyMissing = errors.New("API key is not configured.")
	// ErrInvalidRequestType 未识别的请求类型
	ErrInvalidRequestType = errors.New("Invalid API request type.")
	// ErrEmptyHistory chat 请求必须至少带一条消息
	ErrEmptyHistory = errors.New("chat history must contain at least one message")
	// ErrEmptyPrompt text/code/image 请求的 prompt 不能为空
	ErrEmptyPrompt = errors.New("prompt must not be empty")
	// ErrInvalidAspectRatio 宽高比不在支持的枚举内
	ErrInvalidAspectRatio = errors.New("unsupported aspect ratio")
)
