package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"lumina-backend/internal/service"
	"lumina-backend/internal/utils"
	"lumina-backend/pkg/logger"
	"lumina-backend/pkg/model"

	"github.com/gin-gonic/gin"
)

// 上游异常没有可用错误信息时的兜底文案
const fallbackErrorMessage = "An internal server error occurred."

type GenerateHandler struct {
	generateService *service.GenerateService
}

func NewGenerateHandler(generateService *service.GenerateService) *GenerateHandler {
	return &GenerateHandler{
		generateService: generateService,
	}
}

// Generate 统一入口，按 type 标签分发到四种操作。
// 未识别的标签直接 400，不触达上游。
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	switch req.Type {
	case model.RequestTypeChat:
		h.handleChat(c, req.Payload)
	case model.RequestTypeText:
		h.handleText(c, req.Payload)
	case model.RequestTypeCode:
		h.handleCode(c, req.Payload)
	case model.RequestTypeImage:
		h.handleImage(c, req.Payload)
	default:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: service.ErrInvalidRequestType.Error()})
	}
}

// handleChat 把上游 token 流逐块转发给客户端，来一块写一块，不整体缓冲。
// 写出去之前出的错仍返回 JSON 信封；已经开始写流就只能关闭连接。
func (h *GenerateHandler) handleChat(c *gin.Context, payload json.RawMessage) {
	var chatPayload model.ChatPayload
	if err := json.Unmarshal(payload, &chatPayload); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	chunks, errc, err := h.generateService.StreamChat(c.Request.Context(), chatPayload.History)
	if err != nil {
		h.writeError(c, err)
		return
	}

	sw := utils.NewStreamWriter(c.Writer)

	for text := range chunks {
		if err := sw.Write(text); err != nil {
			logger.Errorf("chat 流写出失败 [%s]: %v", RequestIDFrom(c), err)
			return
		}
	}

	// chunk 通道关闭后再收一次错误通道，拿到流的终止原因
	if err := <-errc; err != nil {
		if !sw.Wrote() {
			h.writeError(c, err)
			return
		}
		// 流已部分写出，中止传输而不是挂着连接不放
		logger.Errorf("chat 上游流中断 [%s]: %v", RequestIDFrom(c), err)
		return
	}

	// 上游可能一块内容都没给就正常结束，仍按流式响应头收尾
	sw.Begin()
}

func (h *GenerateHandler) handleText(c *gin.Context, payload json.RawMessage) {
	var promptPayload model.PromptPayload
	if err := json.Unmarshal(payload, &promptPayload); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	text, err := h.generateService.GenerateText(c.Request.Context(), promptPayload.Prompt)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TextResponse{Text: text})
}

func (h *GenerateHandler) handleCode(c *gin.Context, payload json.RawMessage) {
	var promptPayload model.PromptPayload
	if err := json.Unmarshal(payload, &promptPayload); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	text, err := h.generateService.GenerateCode(c.Request.Context(), promptPayload.Prompt)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TextResponse{Text: text})
}

func (h *GenerateHandler) handleImage(c *gin.Context, payload json.RawMessage) {
	var imagePayload model.ImagePayload
	if err := json.Unmarshal(payload, &imagePayload); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.generateService.GenerateImage(c.Request.Context(), imagePayload.Prompt, imagePayload.AspectRatio)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError 统一错误信封：配置错误 500、校验错误 400、上游错误 500 并原样带出 message
func (h *GenerateHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrAPIKeyMissing):
		// 保持 500，密钥缺失是服务端配置问题
	case errors.Is(err, service.ErrEmptyHistory),
		errors.Is(err, service.ErrEmptyPrompt),
		errors.Is(err, service.ErrInvalidAspectRatio):
		status = http.StatusBadRequest
	default:
		logger.Errorf("生成请求失败 [%s]: %v", RequestIDFrom(c), err)
	}

	message := err.Error()
	if message == "" {
		message = fallbackErrorMessage
	}

	c.JSON(status, model.ErrorResponse{Error: message})
}
