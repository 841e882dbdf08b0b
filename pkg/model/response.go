package model

type TextResponse struct {
	Text string `json:"text"`
}

// ImageResponse 透传上游的图片生成结构，GeneratedImages 可以为空（零张图也是成功）
type ImageResponse struct {
	GeneratedImages []GeneratedImage `json:"generatedImages"`
}

type GeneratedImage struct {
	Image ImageData `json:"image"`
}

type ImageData struct {
	ImageBytes string `json:"imageBytes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
