package worker

import (
	"context"
	"errors"
	"time"

	"github.com/paybridge-next/internal/config"
	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/queue"

	"github.com/hibiken/asynq"
)

// staleStatuses 需要定期重拉的非终态订单状态
var staleStatuses = []string{
	constants.OrderStatusNew,
	constants.OrderStatusInProgress,
	constants.OrderStatusPending,
}

// Service 异步队列服务
type Service struct {
	name         string
	server       *asynq.Server
	mux          *asynq.ServeMux
	consumer     *Consumer
	reconcileCfg *config.ReconcileConfig
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, reconcileCfg *config.ReconcileConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:         "worker",
		server:       server,
		mux:          mux,
		consumer:     consumer,
		reconcileCfg: reconcileCfg,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.reconcileCfg != nil && s.reconcileCfg.StalePollEnabled {
		go s.runStaleSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runStaleSweepLoop 定期把长时间未更新的非终态订单重新入队对账
func (s *Service) runStaleSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.Container == nil {
		return
	}
	interval := 5 * time.Minute
	if s.reconcileCfg.SweepIntervalSeconds > 0 {
		interval = time.Duration(s.reconcileCfg.SweepIntervalSeconds) * time.Second
	}

	s.sweepStaleOrders()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStaleOrders()
		}
	}
}

func (s *Service) sweepStaleOrders() {
	staleAfter := 30 * time.Minute
	if s.reconcileCfg.StaleAfterMinutes > 0 {
		staleAfter = time.Duration(s.reconcileCfg.StaleAfterMinutes) * time.Minute
	}
	batchSize := 50
	if s.reconcileCfg.SweepBatchSize > 0 {
		batchSize = s.reconcileCfg.SweepBatchSize
	}

	orders, err := s.consumer.OrderRepo.ListStaleUnsettled(staleStatuses, time.Now().Add(-staleAfter), batchSize)
	if err != nil {
		logger.Warnw("worker_stale_sweep_list_failed", "error", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	enqueued := 0
	for _, order := range orders {
		err := s.consumer.QueueClient.EnqueueReconcileStatusPoll(queue.ReconcileStatusPollPayload{
			OrderKey: order.OrderKey,
		})
		if err != nil {
			logger.Warnw("worker_stale_sweep_enqueue_failed",
				"order_key", order.OrderKey,
				"error", err,
			)
			continue
		}
		enqueued++
	}
	logger.Infow("worker_stale_sweep_completed",
		"candidates", len(orders),
		"enqueued", enqueued,
	)
}
