package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"lumina-backend/internal/config"
	"lumina-backend/pkg/model"
	"lumina-backend/internal/utils"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// geminiClient 基于官方 SDK 的上游实现，图片生成走 REST（SDK 未覆盖）
type geminiClient struct {
	client *genai.Client
	cfg    *config.GeminiConfig
	imagen *imagenAPI
}

// NewGeminiClient 按请求构造 Gemini 客户端
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig, apiKey string) (Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	return &geminiClient{
		client: client,
		cfg:    cfg,
		imagen: newImagenAPI(cfg.BaseURL, cfg.ImageModel, apiKey, utils.NewHTTPClient(cfg.Timeout)),
	}, nil
}

func (g *geminiClient) StreamChat(ctx context.Context, history []model.Content, message string) (Stream, error) {
	m := g.client.GenerativeModel(g.cfg.Model)

	cs := m.StartChat()
	cs.History = toGenaiHistory(history)

	return &chatStream{it: cs.SendMessageStream(ctx, genai.Text(message))}, nil
}

func (g *geminiClient) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	m := g.client.GenerativeModel(g.cfg.Model)
	m.SetTemperature(opts.Temperature)
	if opts.TopP != nil {
		m.SetTopP(*opts.TopP)
	}
	if opts.TopK != nil {
		m.SetTopK(*opts.TopK)
	}
	if opts.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemInstruction)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	return joinTextParts(resp.Candidates[0].Content), nil
}

func (g *geminiClient) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.ImageResponse, error) {
	return g.imagen.Generate(ctx, prompt, aspectRatio)
}

func (g *geminiClient) Close() error {
	return g.client.Close()
}

// chatStream 包装 SDK 的响应迭代器，流结束统一转成 io.EOF
type chatStream struct {
	it *genai.GenerateContentResponseIterator
}

func (s *chatStream) Recv() (string, error) {
	resp, err := s.it.Next()
	if err == iterator.Done {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	return joinTextParts(resp.Candidates[0].Content), nil
}

func toGenaiHistory(history []model.Content) []*genai.Content {
	result := make([]*genai.Content, 0, len(history))
	for _, c := range history {
		parts := make([]genai.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			parts = append(parts, genai.Text(p.Text))
		}
		result = append(result, &genai.Content{
			Role:  c.Role,
			Parts: parts,
		})
	}
	return result
}

func joinTextParts(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
