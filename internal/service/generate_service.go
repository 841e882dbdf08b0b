package service

import (
	"context"
	"io"
	"strings"

	"lumina-backend/internal/config"
	"lumina-backend/internal/upstream"
	"lumina-backend/pkg/logger"
	"lumina-backend/pkg/model"
)

// code 请求固定的系统指令，不随用户输入变化
const codeSystemInstruction = "You are a world-class coding assistant. " +
	"Provide clean, efficient, and well-documented code. " +
	"When asked for code, provide only the code block in markdown format."

// text/code 各自固定的采样配置
var (
	textTopP float32 = 1
	textTopK int32   = 1

	textOptions = upstream.GenerateOptions{
		Temperature: 0.7,
		TopP:        &textTopP,
		TopK:        &textTopK,
	}

	codeOptions = upstream.GenerateOptions{
		Temperature:       0.2,
		SystemInstruction: codeSystemInstruction,
	}
)

// GenerateService 无状态的请求中转：校验、按请求构造上游客户端、转发结果。
// 请求之间不共享任何可变状态，可水平扩容。
type GenerateService struct {
	cfg       *config.Config
	newClient upstream.Factory
}

func NewGenerateService(cfg *config.Config) *GenerateService {
	return NewGenerateServiceWithFactory(cfg, upstream.NewGeminiClient)
}

// NewGenerateServiceWithFactory 注入自定义上游工厂，供测试替换桩实现
func NewGenerateServiceWithFactory(cfg *config.Config, factory upstream.Factory) *GenerateService {
	return &GenerateService{
		cfg:       cfg,
		newClient: factory,
	}
}

// client 每次请求重新校验密钥并构造上游客户端
func (s *GenerateService) client(ctx context.Context) (upstream.Client, error) {
	apiKey := s.cfg.ResolveAPIKey()
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	return s.newClient(ctx, &s.cfg.Gemini, apiKey)
}

// StreamChat 把历史拆成上下文和新消息，开启上游流式会话。
// 返回的 chunk 通道无缓冲：写出方消费掉一块之前不会预读下一块。
// 校验和建流错误同步返回，流中途的错误走 error 通道。
func (s *GenerateService) StreamChat(ctx context.Context, history []model.Content) (<-chan string, <-chan error, error) {
	prior, message, err := splitHistory(history)
	if err != nil {
		return nil, nil, err
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, nil, err
	}

	stream, err := client.StreamChat(ctx, prior, message)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	chunks := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(chunks)
		defer client.Close()

		for {
			text, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			// 无文本的块跳过，但不结束流
			if text == "" {
				continue
			}

			select {
			case chunks <- text:
			case <-ctx.Done():
				logger.Debugf("chat 流被调用方取消: %v", ctx.Err())
				return
			}
		}
	}()

	return chunks, errc, nil
}

// GenerateText 通用文本生成，一次性返回完整结果
func (s *GenerateService) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.generate(ctx, prompt, textOptions)
}

// GenerateCode 代码生成，低温采样加固定系统指令
func (s *GenerateService) GenerateCode(ctx context.Context, prompt string) (string, error) {
	return s.generate(ctx, prompt, codeOptions)
}

func (s *GenerateService) generate(ctx context.Context, prompt string, opts upstream.GenerateOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	return client.GenerateContent(ctx, prompt, opts)
}

// GenerateImage 生成一张图片，上游结构原样返回；
// 零张图也是成功，调用方据此和传输失败区分
func (s *GenerateService) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.ImageResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if !model.ValidAspectRatio(aspectRatio) {
		return nil, ErrInvalidAspectRatio
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return client.GenerateImage(ctx, prompt, aspectRatio)
}

// splitHistory 最后一条是新消息，前缀作为上游会话的种子上下文。
// 只读不改，调用方的历史切片保持原样。
func splitHistory(history []model.Content) ([]model.Content, string, error) {
	if len(history) == 0 {
		return nil, "", ErrEmptyHistory
	}

	last := history[len(history)-1]
	return history[:len(history)-1], last.Text(), nil
}
