package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/types"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构。code 为 0 表示成功携带 results，
// 为 1 表示失败携带 message，任何处理器内部错误都落到这个信封，
// 不向客户端抛裸错误。
type Response struct {
	Code    int    `json:"code"`
	Results any    `json:"results,omitempty"`
	Message string `json:"message,omitempty"`
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 编码失败时响应头已写出，只能放弃
	_ = json.NewEncoder(w).Encode(data)
}

// WriteResults 写入成功响应
func WriteResults(w http.ResponseWriter, results any) {
	WriteJSON(w, http.StatusOK, Response{Code: 0, Results: results})
}

// WriteFailure 写入失败响应。结构化错误按错误码映射 HTTP 状态，
// 其余错误一律 500，错误文本进 message。
func WriteFailure(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := http.StatusInternalServerError
	message := err.Error()

	if apiErr, ok := err.(*types.Error); ok {
		if apiErr.HTTPStatus != 0 {
			status = apiErr.HTTPStatus
		} else {
			status = mapErrorCodeToHTTPStatus(apiErr.Code)
		}
		if logger != nil {
			logger.Error("request failed",
				zap.String("code", string(apiErr.Code)),
				zap.String("message", apiErr.Message),
				zap.Int("status", status),
				zap.Bool("retryable", apiErr.Retryable),
				zap.Error(apiErr.Cause),
			)
		}
	} else if logger != nil {
		logger.Error("request failed", zap.Error(err))
	}

	WriteJSON(w, status, Response{Code: 1, Message: message})
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	// 4xx 客户端错误
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrRateLimited:
		return http.StatusTooManyRequests

	// 5xx 服务端错误
	case types.ErrTimeout:
		return http.StatusGatewayTimeout
	case types.ErrModelUnavailable, types.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrCrawlFailed, types.ErrCrawlEmpty:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil {
		err := types.NewError(types.ErrInvalidRequest, "request body is empty")
		WriteFailure(w, err, logger)
		return err
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiErr := types.NewError(types.ErrInvalidRequest, "invalid JSON body").
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest)
		WriteFailure(w, apiErr, logger)
		return apiErr
	}

	return nil
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
