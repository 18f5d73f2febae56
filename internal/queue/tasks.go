package queue

import (
	"encoding/json"

	"github.com/paybridge-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskReconcileStatusPoll 订单状态重拉对账任务
	TaskReconcileStatusPoll = constants.TaskReconcileStatusPoll
	// TaskOrderStatusChanged 订单状态变更通知任务
	TaskOrderStatusChanged = constants.TaskOrderStatusChanged
)

// ReconcileStatusPollPayload 状态重拉任务载荷
type ReconcileStatusPollPayload struct {
	OrderKey string `json:"order_key"`
}

// OrderStatusChangedPayload 状态变更通知任务载荷
type OrderStatusChangedPayload struct {
	OrderKey        string `json:"order_key"`
	MerchantOrderNo string `json:"merchant_order_no"`
	PreviousStatus  string `json:"previous_status"`
	NewStatus       string `json:"new_status"`
}

// NewReconcileStatusPollTask 创建状态重拉任务
func NewReconcileStatusPollTask(payload ReconcileStatusPollPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileStatusPoll, body), nil
}

// NewOrderStatusChangedTask 创建状态变更通知任务
func NewOrderStatusChangedTask(payload OrderStatusChangedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusChanged, body), nil
}
