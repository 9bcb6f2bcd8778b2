// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证与配额错误 (2xxx)
	CodeAPIKeyInvalid      ErrorCode = "2001"
	CodeUsageLimitExceeded ErrorCode = "2002"

	// 资源错误 (3xxx)
	CodeProjectNotFound  ErrorCode = "3001"
	CodeDocumentNotFound ErrorCode = "3002"
	CodeAPIKeyNotFound   ErrorCode = "3003"
	CodeAccountNotFound  ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodeUnsupportedFileType ErrorCode = "4001"
	CodeExtractionFailed    ErrorCode = "4002"
	CodeNoTextContent       ErrorCode = "4003"
	CodeNoChunksCreated     ErrorCode = "4004"
	CodeEmbeddingFailed     ErrorCode = "4005"
	CodeSearchFailed        ErrorCode = "4006"
	CodeLLMCallFailed       ErrorCode = "4007"
	CodeIngestionFailed     ErrorCode = "4008"

	// 外部服务错误 (5xxx)
	CodeDatabaseError  ErrorCode = "5001"
	CodeCacheError     ErrorCode = "5002"
	CodeVectorDBError  ErrorCode = "5003"
	CodeLLMProviderErr ErrorCode = "5004"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeUnsupportedFileType, CodeNoTextContent, CodeNoChunksCreated:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeAPIKeyInvalid:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeProjectNotFound, CodeDocumentNotFound, CodeAPIKeyNotFound, CodeAccountNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests, CodeUsageLimitExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeExtractionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	// ErrAPIKeyInvalid 对未知/停用/过期/畸形密钥统一返回，不区分原因
	ErrAPIKeyInvalid = New(CodeAPIKeyInvalid, "invalid or expired API key")

	ErrUsageLimitExceeded = New(CodeUsageLimitExceeded, "usage limit exceeded")

	ErrProjectNotFound  = New(CodeProjectNotFound, "project not found")
	ErrDocumentNotFound = New(CodeDocumentNotFound, "document not found")
	ErrAPIKeyNotFound   = New(CodeAPIKeyNotFound, "API key not found")
	ErrAccountNotFound  = New(CodeAccountNotFound, "account not found")

	ErrNoTextContent  = New(CodeNoTextContent, "no text content found in the document")
	ErrNoChunks       = New(CodeNoChunksCreated, "no valid chunks created from document")
	ErrLLMCallFailed  = New(CodeLLMCallFailed, "LLM call failed")
	ErrSearchFailed   = New(CodeSearchFailed, "vector search failed")
	ErrEmbedFailed    = New(CodeEmbeddingFailed, "failed to generate embeddings")
	ErrExtractionFail = New(CodeExtractionFailed, "text extraction failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
