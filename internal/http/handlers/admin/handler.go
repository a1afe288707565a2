package admin

import "github.com/tms-next/internal/provider"

// Handler 后台接口处理器入口
// 说明：调度员使用的路线规划 API 都挂在该处理器上。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
