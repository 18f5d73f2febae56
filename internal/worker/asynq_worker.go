package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/provider"
	"github.com/paybridge-next/internal/queue"
	"github.com/paybridge-next/internal/service"

	"github.com/hibiken/asynq"
)

const defaultNotifyTimeout = 5 * time.Second

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskReconcileStatusPoll, c.handleReconcileStatusPoll)
	mux.HandleFunc(queue.TaskOrderStatusChanged, c.handleOrderStatusChanged)
}

// handleReconcileStatusPoll 处理订单状态重拉任务
func (c *Consumer) handleReconcileStatusPoll(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_status_poll_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReconcileStatusPollPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_status_poll_unmarshal_failed", "error", err)
		return err
	}
	orderKey := strings.TrimSpace(payload.OrderKey)
	if orderKey == "" {
		logger.Debugw("worker_status_poll_skip_empty_order_key")
		return nil
	}

	result, err := c.ReconcileService.PullAndReconcile(ctx, orderKey, constants.NotificationChannelPoll)
	if err != nil {
		// 订单不存在时重试没有意义，直接丢弃任务
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Warnw("worker_status_poll_order_not_found", "order_key", orderKey)
			return nil
		}
		logger.Errorw("worker_status_poll_failed", "order_key", orderKey, "error", err)
		return err
	}

	logger.Infow("worker_status_poll_processed",
		"order_key", orderKey,
		"status", result.Order.Status,
		"duplicate", result.Duplicate,
	)
	return nil
}

// handleOrderStatusChanged 推送订单状态变更到配置的订阅方
func (c *Consumer) handleOrderStatusChanged(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_status_changed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderStatusChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_status_changed_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.OrderKey) == "" {
		logger.Debugw("worker_status_changed_skip_empty_order_key")
		return nil
	}

	subscribers := c.Config.Notify.SubscriberURLs
	if len(subscribers) == 0 {
		logger.Debugw("worker_status_changed_skip_no_subscribers",
			"order_key", payload.OrderKey,
			"new_status", payload.NewStatus,
		)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	timeout := defaultNotifyTimeout
	if c.Config.Notify.TimeoutMS > 0 {
		timeout = time.Duration(c.Config.Notify.TimeoutMS) * time.Millisecond
	}
	client := &http.Client{Timeout: timeout}

	var lastErr error
	for _, rawURL := range subscribers {
		target := strings.TrimSpace(rawURL)
		if target == "" {
			continue
		}
		if err := postSubscriber(ctx, client, target, body); err != nil {
			logger.Warnw("worker_status_changed_notify_failed",
				"order_key", payload.OrderKey,
				"subscriber", target,
				"error", err,
			)
			lastErr = err
			continue
		}
		logger.Infow("worker_status_changed_notified",
			"order_key", payload.OrderKey,
			"subscriber", target,
			"new_status", payload.NewStatus,
		)
	}
	// 任一订阅方失败即交给队列重试，成功方的重复投递由订阅方幂等消化
	return lastErr
}

func postSubscriber(ctx context.Context, client *http.Client, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("subscriber responded with status " + resp.Status)
	}
	return nil
}
