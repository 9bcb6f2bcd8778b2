// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shreyan01/ruberic/internal/interfaces/http/dto"
	"github.com/shreyan01/ruberic/pkg/errors"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// respondError 按错误类型返回响应
// AppError 按其映射的 HTTP 状态码返回，其余错误统一 500 并记日志。
func respondError(c *gin.Context, err error, fallbackMsg string) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error: &dto.ErrorDetail{
				ErrorCode: string(appErr.Code),
				Details:   appErr.Detail,
			},
			TraceID: c.GetString("trace_id"),
		})
		return
	}

	logger.Error(c.Request.Context(), fallbackMsg, err,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	dto.InternalError(c, fallbackMsg)
}
