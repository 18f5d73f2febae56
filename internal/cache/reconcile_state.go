package cache

import (
	"context"
	"fmt"
	"time"
)

// ReconcileOutcome 最近一次对账结果的短期快照，
// 供返回页轮询接口免查库读取；缓存关闭时调用方回退到持久层
type ReconcileOutcome struct {
	OrderKey        string    `json:"order_key"`
	MerchantOrderNo string    `json:"merchant_order_no"`
	Status          string    `json:"status"`
	PreviousStatus  string    `json:"previous_status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func reconcileOutcomeKey(orderKey string) string {
	return fmt.Sprintf("reconcile:outcome:%s", orderKey)
}

// SetReconcileOutcome 写入对账结果快照
func SetReconcileOutcome(ctx context.Context, outcome ReconcileOutcome, ttl time.Duration) error {
	if outcome.OrderKey == "" {
		return nil
	}
	return SetJSON(ctx, reconcileOutcomeKey(outcome.OrderKey), outcome, ttl)
}

// GetReconcileOutcome 读取对账结果快照
func GetReconcileOutcome(ctx context.Context, orderKey string) (*ReconcileOutcome, bool, error) {
	var outcome ReconcileOutcome
	found, err := GetJSON(ctx, reconcileOutcomeKey(orderKey), &outcome)
	if err != nil || !found {
		return nil, false, err
	}
	return &outcome, true, nil
}
