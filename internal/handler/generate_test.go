package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lumina-backend/internal/config"
	"lumina-backend/internal/service"
	"lumina-backend/internal/upstream"
	"lumina-backend/pkg/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStream struct {
	chunks []string
	err    error
	pos    int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

type stubUpstream struct {
	history []model.Content
	message string
	stream  *stubStream

	content string
	genErr  error

	image *model.ImageResponse
}

func (s *stubUpstream) StreamChat(ctx context.Context, history []model.Content, message string) (upstream.Stream, error) {
	s.history = history
	s.message = message
	return s.stream, nil
}

func (s *stubUpstream) GenerateContent(ctx context.Context, prompt string, opts upstream.GenerateOptions) (string, error) {
	return s.content, s.genErr
}

func (s *stubUpstream) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.ImageResponse, error) {
	return s.image, nil
}

func (s *stubUpstream) Close() error { return nil }

func newTestRouter(t *testing.T, stub *stubUpstream, calls *int) *gin.Engine {
	t.Helper()

	cfg := &config.Config{}
	cfg.Gemini.APIKey = "test-key"
	cfg.ApplyDefaults()

	return routerFor(cfg, stub, calls)
}

func routerFor(cfg *config.Config, stub *stubUpstream, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := service.NewGenerateServiceWithFactory(cfg, func(ctx context.Context, gcfg *config.GeminiConfig, apiKey string) (upstream.Client, error) {
		*calls++
		return stub, nil
	})

	router := gin.New()
	router.Use(RequestID())
	router.POST("/api/gemini", NewGenerateHandler(svc).Generate)
	return router
}

func doRequest(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/gemini", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateUnknownType(t *testing.T) {
	var calls int
	router := newTestRouter(t, &stubUpstream{}, &calls)

	w := doRequest(router, `{"type":"video","payload":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid API request type."}`, w.Body.String())
	assert.Zero(t, calls)
}

func TestGenerateMalformedBody(t *testing.T) {
	var calls int
	router := newTestRouter(t, &stubUpstream{}, &calls)

	w := doRequest(router, `{"type":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, calls)
}

func TestGenerateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	var calls int
	router := routerFor(cfg, &stubUpstream{stream: &stubStream{}}, &calls)

	bodies := []string{
		`{"type":"chat","payload":{"history":[{"role":"user","parts":[{"text":"hi"}]}]}}`,
		`{"type":"text","payload":{"prompt":"hi"}}`,
		`{"type":"code","payload":{"prompt":"hi"}}`,
		`{"type":"image","payload":{"prompt":"a cat","aspectRatio":"1:1"}}`,
	}

	for _, body := range bodies {
		w := doRequest(router, body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, body)
		assert.JSONEq(t, `{"error":"API key is not configured."}`, w.Body.String(), body)
	}
	assert.Zero(t, calls)
}

func TestGenerateTextEndToEnd(t *testing.T) {
	var calls int
	router := newTestRouter(t, &stubUpstream{content: "hi"}, &calls)

	w := doRequest(router, `{"type":"text","payload":{"prompt":"Say hi"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"hi"}`, w.Body.String())
	assert.Equal(t, 1, calls)
}

func TestGenerateCodeReturnsUpstreamVerbatim(t *testing.T) {
	raw := "```python\nprint('hi')\n```"
	var calls int
	router := newTestRouter(t, &stubUpstream{content: raw}, &calls)

	w := doRequest(router, `{"type":"code","payload":{"prompt":"print hi"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf("{\"text\":%q}", raw), w.Body.String())
}

func TestGenerateTextUpstreamError(t *testing.T) {
	var calls int
	router := newTestRouter(t, &stubUpstream{genErr: errors.New("quota exceeded")}, &calls)

	w := doRequest(router, `{"type":"text","payload":{"prompt":"Say hi"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"quota exceeded"}`, w.Body.String())
}

func TestGenerateImageZeroImages(t *testing.T) {
	var calls int
	stub := &stubUpstream{image: &model.ImageResponse{GeneratedImages: make([]model.GeneratedImage, 0)}}
	router := newTestRouter(t, stub, &calls)

	w := doRequest(router, `{"type":"image","payload":{"prompt":"a cat","aspectRatio":"1:1"}}`)

	// 零张图是成功，客户端靠状态码区分传输失败
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"generatedImages":[]}`, w.Body.String())
}

func TestGenerateImageInvalidAspectRatio(t *testing.T) {
	var calls int
	router := newTestRouter(t, &stubUpstream{}, &calls)

	w := doRequest(router, `{"type":"image","payload":{"prompt":"a cat","aspectRatio":"2:1"}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, calls)
}

func TestChatStreamRelaysChunks(t *testing.T) {
	var calls int
	stub := &stubUpstream{stream: &stubStream{chunks: []string{"Hel", "", "lo, ", "world"}}}
	router := newTestRouter(t, stub, &calls)

	w := doRequest(router, `{"type":"chat","payload":{"history":[{"role":"user","parts":[{"text":"hi"}]}]}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Hello, world", w.Body.String())
}

func TestChatStreamEmptyUpstream(t *testing.T) {
	var calls int
	stub := &stubUpstream{stream: &stubStream{}}
	router := newTestRouter(t, stub, &calls)

	w := doRequest(router, `{"type":"chat","payload":{"history":[{"role":"user","parts":[{"text":"hi"}]}]}}`)

	// 上游一块都没产出也算成功，响应头仍是流式的
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Empty(t, w.Body.String())
}

func TestChatStreamSplitsHistory(t *testing.T) {
	var calls int
	stub := &stubUpstream{stream: &stubStream{chunks: []string{"ok"}}}
	router := newTestRouter(t, stub, &calls)

	body := `{"type":"chat","payload":{"history":[
		{"role":"user","parts":[{"text":"a"}]},
		{"role":"model","parts":[{"text":"b"}]},
		{"role":"user","parts":[{"text":"c"}]}
	]}}`
	w := doRequest(router, body)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, stub.history, 2)
	assert.Equal(t, "a", stub.history[0].Text())
	assert.Equal(t, "b", stub.history[1].Text())
	assert.Equal(t, "c", stub.message)
}

func TestChatStreamErrorBeforeFirstChunk(t *testing.T) {
	var calls int
	stub := &stubUpstream{stream: &stubStream{err: errors.New("safety block")}}
	router := newTestRouter(t, stub, &calls)

	w := doRequest(router, `{"type":"chat","payload":{"history":[{"role":"user","parts":[{"text":"hi"}]}]}}`)

	// 还没写出任何字节，仍然可以返回 JSON 错误信封
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"safety block"}`, w.Body.String())
}

func TestChatStreamErrorMidStreamKeepsPartialOutput(t *testing.T) {
	var calls int
	stub := &stubUpstream{stream: &stubStream{
		chunks: []string{"partial "},
		err:    errors.New("connection reset"),
	}}
	router := newTestRouter(t, stub, &calls)

	w := doRequest(router, `{"type":"chat","payload":{"history":[{"role":"user","parts":[{"text":"hi"}]}]}}`)

	// 已写出的部分保留，流被关闭而不是挂起
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial ", w.Body.String())
}

func TestChatEmptyHistory(t *testing.T) {
	var calls int
	router := newTestRouter(t, &stubUpstream{}, &calls)

	w := doRequest(router, `{"type":"chat","payload":{"history":[]}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, calls)
}
