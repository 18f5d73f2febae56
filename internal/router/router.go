package router

import (
	"github.com/paybridge-next/internal/config"
	publichandlers "github.com/paybridge-next/internal/http/handlers/public"
	"github.com/paybridge-next/internal/http/response"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 商户侧会话与查询接口
		apiV1.POST("/sessions", publicHandler.CreateSession)
		apiV1.GET("/orders/:order_key/status", publicHandler.GetOrderStatus)

		// 网关回跳与服务端回调接口
		payments := apiV1.Group("/payments")
		{
			payments.GET("/return", publicHandler.HandlePaymentReturn)
			payments.GET("/callback", publicHandler.HandlePaymentCallback)
			payments.POST("/callback", publicHandler.HandlePaymentCallback)
		}
	}

	return r
}
