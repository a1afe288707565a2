package shared

import (
	"context"

	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/logger"

	"github.com/gin-gonic/gin"
)

// 上下文 key
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextUserRole = "user_role"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetUserID 读取当前登录用户 ID
func GetUserID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextUserID, "error.user_id_invalid", "error.user_id_type_invalid")
}

// RequestContext 返回携带 request_id 与 user_id 日志字段的请求上下文
func RequestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	fields := make([]interface{}, 0, 4)
	if id, ok := c.Get("request_id"); ok {
		fields = append(fields, "request_id", id)
	}
	if id, ok := c.Get(ContextUserID); ok {
		fields = append(fields, "user_id", id)
	}
	if len(fields) == 0 {
		return ctx
	}
	return logger.WithContext(ctx, fields...)
}
