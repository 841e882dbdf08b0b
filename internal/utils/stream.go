package utils

import (
	"io"
	"net/http"
)

// StreamWriter 把文本片段按到达顺序写给客户端，每写一块立即 flush。
// 响应头在第一次写入时才设置，写入前出错仍可返回 JSON 错误信封。
type StreamWriter struct {
	w     http.ResponseWriter
	wrote bool
}

func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	return &StreamWriter{w: w}
}

func (s *StreamWriter) Write(text string) error {
	s.Begin()

	if _, err := io.WriteString(s.w, text); err != nil {
		return err
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}

// Begin 设置流式响应头并写出 200。幂等，上游没有产出任何片段时
// 也要调用一次，保证空流同样以 text/plain 结束。
func (s *StreamWriter) Begin() {
	if s.wrote {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.wrote = true
}

// Wrote 报告是否已向客户端写出过数据
func (s *StreamWriter) Wrote() bool {
	return s.wrote
}
