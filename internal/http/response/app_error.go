package response

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// AppError 携带业务码与文案 key 的错误
type AppError struct {
	Code    int
	Key     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Key
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ServerSide 5xx 业务码，原始错误需要记录
func (e *AppError) ServerSide() bool {
	return e != nil && e.Code >= CodeInternal
}

// NewAppError 创建业务错误
func NewAppError(code int, key, message string, err error) *AppError {
	return &AppError{Code: code, Key: key, Message: message, Err: err}
}

// AsAppError 从错误链中取出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

// ErrorFrom 按 AppError 输出错误响应，其它错误按内部错误处理
func ErrorFrom(c *gin.Context, err error, fallbackMsg string) {
	if appErr, ok := AsAppError(err); ok {
		Error(c, appErr.Code, appErr.Message)
		return
	}
	Error(c, CodeInternal, fallbackMsg)
}
