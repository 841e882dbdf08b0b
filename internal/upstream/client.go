package upstream

import (
	"context"

	"lumina-backend/internal/config"
	"lumina-backend/pkg/model"
)

// Stream 上游的增量文本流，读完返回 io.EOF。
// 允许出现空文本块，由调用方决定跳过。
type Stream interface {
	Recv() (string, error)
}

// GenerateOptions 一次性生成的采样配置
type GenerateOptions struct {
	Temperature       float32
	TopP              *float32
	TopK              *int32
	SystemInstruction string
}

// Client 上游生成式 AI 服务的抽象，每个请求单独构造、用完即弃
type Client interface {
	// StreamChat 用 history 作为上下文开启会话，发送 message 并返回增量流
	StreamChat(ctx context.Context, history []model.Content, message string) (Stream, error)
	// GenerateContent 非流式生成，返回完整文本
	GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// GenerateImage 按宽高比生成一张图片，结果原样透传
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.ImageResponse, error)
	Close() error
}

// Factory 按请求构造上游客户端，测试时替换为桩实现
type Factory func(ctx context.Context, cfg *config.GeminiConfig, apiKey string) (Client, error)
