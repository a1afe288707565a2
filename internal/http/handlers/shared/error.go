package shared

import (
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按业务码与文案 key 返回错误响应
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondAppError(c, response.NewAppError(code, key, Message(key), err))
}

// RespondAppError 输出业务错误，5xx 或带原始错误的记录日志
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr == nil {
		response.Error(c, response.CodeInternal, Message("error.internal"))
		return
	}
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"path", c.FullPath(),
			"error", appErr.Err,
		)
	}
	response.ErrorFrom(c, appErr, Message("error.internal"))
}
