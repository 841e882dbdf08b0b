package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lumina-backend/pkg/model"
)

// Imagen 系列模型没有进 Go SDK，走 generativelanguage 的 predict REST 接口
type imagenAPI struct {
	baseURL    string
	imageModel string
	apiKey     string
	httpClient *http.Client
}

func newImagenAPI(baseURL, imageModel, apiKey string, httpClient *http.Client) *imagenAPI {
	return &imagenAPI{
		baseURL:    baseURL,
		imageModel: imageModel,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio"`
	OutputMimeType string `json:"outputMimeType"`
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type imagenResponse struct {
	Predictions []imagenPrediction `json:"predictions"`
}

// googleAPIError 上游错误响应的标准结构
type googleAPIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate 请求生成一张 JPEG 图片，零张结果也作为成功返回
func (a *imagenAPI) Generate(ctx context.Context, prompt, aspectRatio string) (*model.ImageResponse, error) {
	reqBody := imagenRequest{
		Instances: []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{
			SampleCount:    1,
			AspectRatio:    aspectRatio,
			OutputMimeType: "image/jpeg",
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:predict", a.baseURL, a.imageModel)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagen request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagen query: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagen read body: %w", err)
	}

	if resp.StatusCode >= 300 {
		// 尽量取上游的 message 原样上抛
		var apiErr googleAPIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("imagen: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("imagen: status %d: %s", resp.StatusCode, string(respBody))
	}

	var predResp imagenResponse
	if err := json.Unmarshal(respBody, &predResp); err != nil {
		return nil, fmt.Errorf("imagen decode: %w", err)
	}

	result := &model.ImageResponse{
		GeneratedImages: make([]model.GeneratedImage, 0, len(predResp.Predictions)),
	}
	for _, pred := range predResp.Predictions {
		result.GeneratedImages = append(result.GeneratedImages, model.GeneratedImage{
			Image: model.ImageData{ImageBytes: pred.BytesBase64Encoded},
		})
	}

	return result, nil
}
