package public

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/http/response"
	"github.com/paybridge-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HandlePaymentReturn 处理购物者支付完成后的浏览器回跳
// GET /api/v1/payments/return
// 回跳只携带 order_key，权威状态一律回拉网关状态报告
func (h *Handler) HandlePaymentReturn(c *gin.Context) {
	log := requestLog(c)
	orderKey := strings.TrimSpace(c.Query("order_key"))
	if orderKey == "" {
		respondError(c, response.CodeBadRequest, "error.order_key_required", nil)
		return
	}

	result, err := h.ReconcileService.PullAndReconcile(c.Request.Context(), orderKey, constants.NotificationChannelReturn)
	if err != nil {
		log.Warnw("payment_return_reconcile_failed", "order_key", orderKey, "error", err)
		if redirectURL := h.returnRedirectURL(orderKey, "error"); redirectURL != "" {
			c.Redirect(http.StatusFound, redirectURL)
			return
		}
		respondPaymentReturnError(c, err)
		return
	}

	log.Infow("payment_return_processed",
		"order_key", orderKey,
		"status", result.Order.Status,
		"duplicate", result.Duplicate,
	)
	if redirectURL := h.returnRedirectURL(orderKey, result.Order.Status); redirectURL != "" {
		c.Redirect(http.StatusFound, redirectURL)
		return
	}
	response.Success(c, gin.H{
		"order_key":         result.Order.OrderKey,
		"merchant_order_no": result.Order.MerchantOrderNo,
		"status":            result.Order.Status,
		"previous_status":   result.PreviousStatus,
	})
}

// HandlePaymentCallback 处理网关服务端状态回调
// GET|POST /api/v1/payments/callback
// 网关按纯文本判定投递结果，成功返回 OK，失败返回 NOK 触发网关重试
func (h *Handler) HandlePaymentCallback(c *gin.Context) {
	log := requestLog(c)
	orderKey := strings.TrimSpace(c.Query("order_key"))
	if orderKey == "" {
		orderKey = strings.TrimSpace(c.PostForm("order_key"))
	}
	if orderKey == "" {
		log.Warnw("payment_callback_missing_order_key")
		c.String(http.StatusOK, "NOK")
		return
	}

	log.Infow("payment_callback_received", "order_key", orderKey)

	result, err := h.ReconcileService.PullAndReconcile(c.Request.Context(), orderKey, constants.NotificationChannelCallback)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			log.Warnw("payment_callback_order_not_found", "order_key", orderKey)
			c.String(http.StatusOK, "NOK")
			return
		}
		log.Errorw("payment_callback_reconcile_failed", "order_key", orderKey, "error", err)
		c.String(http.StatusOK, "NOK")
		return
	}

	log.Infow("payment_callback_processed",
		"order_key", orderKey,
		"status", result.Order.Status,
		"duplicate", result.Duplicate,
	)
	c.String(http.StatusOK, "OK")
}

// returnRedirectURL 拼装回跳落地页地址，未配置时返回空串
func (h *Handler) returnRedirectURL(orderKey, status string) string {
	base := strings.TrimSpace(h.Config.Gateway.ReturnRedirectURL)
	if base == "" {
		return ""
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return ""
	}
	query := parsed.Query()
	query.Set("order_key", orderKey)
	query.Set("status", status)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
