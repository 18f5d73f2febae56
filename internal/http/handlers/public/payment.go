package public

import (
	"strings"

	"github.com/paybridge-next/internal/cache"
	"github.com/paybridge-next/internal/http/response"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/payment/docdata"
	"github.com/paybridge-next/internal/service"

	"github.com/gin-gonic/gin"
)

// createSessionItemRequest 会话行项目
type createSessionItemRequest struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Amount   string `json:"amount"`
}

// createSessionRequest 创建支付会话请求
type createSessionRequest struct {
	MerchantOrderNo string                     `json:"merchant_order_no" binding:"required"`
	TotalGross      string                     `json:"total_gross" binding:"required"`
	Currency        string                     `json:"currency" binding:"required"`
	Description     string                     `json:"description"`
	Language        string                     `json:"language"`
	Country         string                     `json:"country"`
	Shopper         docdata.Shopper            `json:"shopper"`
	Items           []createSessionItemRequest `json:"items"`
}

// CreateSession 创建支付会话
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	totalGross, err := models.NewMoneyFromString(req.TotalGross)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.amount_invalid", err)
		return
	}
	items := make([]service.SessionItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		amount, err := models.NewMoneyFromString(item.Amount)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.amount_invalid", err)
			return
		}
		items = append(items, service.SessionItemInput{
			Title:    item.Title,
			Quantity: item.Quantity,
			Amount:   amount,
		})
	}

	result, err := h.SessionService.CreatePaymentSession(service.CreateSessionInput{
		MerchantOrderNo: req.MerchantOrderNo,
		TotalGross:      totalGross,
		Currency:        req.Currency,
		Description:     req.Description,
		Language:        req.Language,
		Country:         req.Country,
		Shopper:         req.Shopper,
		Items:           items,
		Context:         c.Request.Context(),
	})
	if err != nil {
		respondSessionCreateError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order_key":        result.Order.OrderKey,
		"payment_page_url": h.Gateway.PaymentPageURL(result.Order.OrderKey),
		"order":            orderStatusData(result.Order),
	})
}

// GetOrderStatus 查询订单对账状态
// GET /api/v1/orders/:order_key/status
// 优先读取最近一次对账结果的缓存快照，未命中回退持久层
func (h *Handler) GetOrderStatus(c *gin.Context) {
	orderKey := strings.TrimSpace(c.Param("order_key"))
	if orderKey == "" {
		respondError(c, response.CodeBadRequest, "error.order_key_required", nil)
		return
	}

	if outcome, hit, err := cache.GetReconcileOutcome(c.Request.Context(), orderKey); err == nil && hit {
		response.Success(c, gin.H{
			"source":            "cache",
			"order_key":         outcome.OrderKey,
			"merchant_order_no": outcome.MerchantOrderNo,
			"status":            outcome.Status,
			"previous_status":   outcome.PreviousStatus,
			"updated_at":        outcome.UpdatedAt,
		})
		return
	}

	order, err := h.OrderRepo.GetByOrderKey(orderKey)
	if err != nil {
		respondOrderStatusError(c, service.ErrOrderFetchFailed)
		return
	}
	if order == nil {
		respondOrderStatusError(c, service.ErrOrderNotFound)
		return
	}
	data := orderStatusData(order)
	data["source"] = "store"
	response.Success(c, data)
}

// orderStatusData 订单聚合响应数据
func orderStatusData(order *models.PayOrder) gin.H {
	items := make([]gin.H, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, gin.H{
			"title":    item.Title,
			"quantity": item.Quantity,
			"amount":   item.Amount.String(),
			"status":   item.Status,
		})
	}
	attempts := make([]gin.H, 0, len(order.Attempts))
	for _, attempt := range order.Attempts {
		attempts = append(attempts, gin.H{
			"payment_id":         attempt.PaymentID,
			"status":             attempt.Status,
			"payment_method":     attempt.PaymentMethod,
			"confidence_level":   attempt.ConfidenceLevel,
			"amount_allocated":   attempt.AmountAllocated.String(),
			"amount_debited":     attempt.AmountDebited.String(),
			"amount_refunded":    attempt.AmountRefunded.String(),
			"amount_chargedback": attempt.AmountChargedBack.String(),
		})
	}
	return gin.H{
		"order_key":               order.OrderKey,
		"merchant_order_no":       order.MerchantOrderNo,
		"status":                  order.Status,
		"currency":                order.Currency,
		"description":             order.Description,
		"total_gross_amount":      order.TotalGrossAmount.String(),
		"total_registered":        order.TotalRegistered.String(),
		"total_shopper_pending":   order.TotalShopperPending.String(),
		"total_acquirer_pending":  order.TotalAcquirerPending.String(),
		"total_acquirer_approved": order.TotalAcquirerApproved.String(),
		"total_captured":          order.TotalCaptured.String(),
		"total_refunded":          order.TotalRefunded.String(),
		"total_chargedback":       order.TotalChargedBack.String(),
		"updated_at":              order.UpdatedAt,
		"items":                   items,
		"attempts":                attempts,
	}
}
