package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient 构造带连接池的 HTTP 客户端，timeout 为 0 表示不限制整体超时
// （流式响应的读取时间不可预估，不能套用整体超时）
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
