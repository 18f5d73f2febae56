package public

import "github.com/paybridge-next/internal/provider"

// Handler 对外支付接口处理器入口
// 说明：该处理器承载商户侧会话接口与网关回跳/回调接口。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
