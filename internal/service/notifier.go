package service

import (
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/queue"
)

// StatusNotifier 订单状态变更的领域通知出口；
// 仅在对账事务提交后调用
type StatusNotifier interface {
	NotifyOrderStatusChanged(order *models.PayOrder, previousStatus, newStatus string)
}

// QueueStatusNotifier 通过异步队列投递状态变更通知；
// 入队失败只记日志，持久化状态才是事实来源
type QueueStatusNotifier struct {
	queueClient *queue.Client
}

// NewQueueStatusNotifier 创建队列通知器
func NewQueueStatusNotifier(queueClient *queue.Client) *QueueStatusNotifier {
	return &QueueStatusNotifier{queueClient: queueClient}
}

// NotifyOrderStatusChanged 投递订单状态变更任务
func (n *QueueStatusNotifier) NotifyOrderStatusChanged(order *models.PayOrder, previousStatus, newStatus string) {
	if n == nil || n.queueClient == nil || order == nil {
		return
	}
	if err := n.queueClient.EnqueueOrderStatusChanged(queue.OrderStatusChangedPayload{
		OrderKey:        order.OrderKey,
		MerchantOrderNo: order.MerchantOrderNo,
		PreviousStatus:  previousStatus,
		NewStatus:       newStatus,
	}); err != nil {
		logger.Warnw("order_status_changed_enqueue_failed",
			"order_key", order.OrderKey,
			"merchant_order_no", order.MerchantOrderNo,
			"new_status", newStatus,
			"error", err,
		)
	}
}
