// Package client 是中转服务的 Go 调用端：把 {type, payload} 信封封装成类型化操作，
// 每次调用只发一次请求，失败不自动重试，重试策略由调用方决定。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"lumina-backend/internal/utils"
	"lumina-backend/pkg/model"
)

// 错误体不是合法 JSON 时的兜底文案
const unknownServerError = "An unknown server error occurred"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 构造网关客户端，baseURL 形如 http://localhost:8080。
// 不设整体超时，chat 流的存活时间由服务端和调用方控制。
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: utils.NewHTTPClient(0),
	}
}

// NewWithHTTPClient 允许注入自定义 HTTP 客户端
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// GenerateText 通用文本生成
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, model.RequestTypeText, prompt)
}

// GenerateCode 代码生成。返回的文本不做任何加工，
// markdown 围栏的剥离是展示层的事
func (c *Client) GenerateCode(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, model.RequestTypeCode, prompt)
}

func (c *Client) generate(ctx context.Context, reqType, prompt string) (string, error) {
	resp, err := c.post(ctx, reqType, model.PromptPayload{Prompt: prompt})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", err
	}

	var textResp model.TextResponse
	if err := json.NewDecoder(resp.Body).Decode(&textResp); err != nil {
		return "", fmt.Errorf("decode text response: %w", err)
	}

	return textResp.Text, nil
}

// GenerateImage 图片生成，上游结构原样返回；
// GeneratedImages 为空切片表示成功但零张图
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.ImageResponse, error) {
	resp, err := c.post(ctx, model.RequestTypeImage, model.ImagePayload{
		Prompt:      prompt,
		AspectRatio: aspectRatio,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var imageResp model.ImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&imageResp); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}

	return &imageResp, nil
}

// StreamChat 在历史副本上追加新的用户消息后发起 chat 请求，
// 调用方的 history 切片不会被改动。成功时返回原始字节流，
// 增量解码交给 StreamDecoder。
func (c *Client) StreamChat(ctx context.Context, history []model.Content, message string) (io.ReadCloser, error) {
	full := make([]model.Content, 0, len(history)+1)
	full = append(full, history...)
	full = append(full, model.NewUserTurn(message))

	resp, err := c.post(ctx, model.RequestTypeChat, model.ChatPayload{History: full})
	if err != nil {
		return nil, err
	}

	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// HistoryFromMessages 把带时间戳的 UI 消息列表转成发往上游的纯对话历史
func HistoryFromMessages(messages []model.ChatMessage) []model.Content {
	history := make([]model.Content, 0, len(messages))
	for _, msg := range messages {
		history = append(history, msg.Content)
	}
	return history
}

func (c *Client) post(ctx context.Context, reqType string, payload any) (*http.Response, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(model.GenerateRequest{
		Type:    reqType,
		Payload: rawPayload,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/gemini", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// checkResponse 非 2xx 时解析错误信封，给调用方一条可直接展示的消息
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := unknownServerError
	var errResp model.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return errors.New(message)
}
