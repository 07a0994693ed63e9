// Package errcode 定义 HTTP 错误响应中 "error" 字段使用的机器可读错误码。
package errcode

// 错误码约定：
// - 4xx 类：调用方可修正的请求问题
// - 5xx 类：服务端渲染或依赖故障
const (
	InvalidJSON          = "invalid_json"
	InvalidPayload       = "invalid_payload"
	ValidationError      = "validation_error"
	UnsupportedMediaType = "unsupported_media_type"
	PayloadTooLarge      = "payload_too_large"
	RateLimited          = "rate_limited"
	PhotoRejected        = "photo_rejected"
	NotFound             = "not_found"
	MethodNotAllowed     = "method_not_allowed"

	PDFGenerationFailed = "pdf_generation_failed"
	InternalError       = "internal_error"
)

// Response 是所有错误响应的统一结构，Message 面向调用方展示。
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
