package app

import (
	"context"
	"errors"
	"net/http"
)

// APIService 承载对账 API 与网关通知入口的 HTTP 服务
type APIService struct {
	server *http.Server
}

// NewAPIService 创建 API 服务
func NewAPIService(addr string, handler http.Handler) *APIService {
	return &APIService{
		server: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Name 服务名称
func (s *APIService) Name() string {
	return "api"
}

// Start 启动监听；优雅关闭触发的 ErrServerClosed 不视为失败
func (s *APIService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("api server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止监听，等待在途的回调与轮询请求完成
func (s *APIService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
