package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/paybridge-next/internal/cache"
	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/payment/docdata"
	"github.com/paybridge-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GatewayClient 网关客户端出口
type GatewayClient interface {
	CreateOrder(ctx context.Context, input docdata.CreateInput) (*docdata.CreateResult, error)
	StatusRequest(ctx context.Context, orderKey string) (*docdata.StatusReport, error)
}

// ReconcileService 对账引擎；把网关通知收敛到订单聚合，
// 同一订单的并发通知经行锁串行化，每个目标状态至多生效一次
type ReconcileService struct {
	orderRepo   repository.OrderRepository
	attemptRepo repository.PaymentAttemptRepository
	gateway     GatewayClient
	notifier    StatusNotifier
	statusMap   *StatusMap
	tolerance   decimal.Decimal
	outcomeTTL  time.Duration
}

// ReconcileOptions 对账引擎可调参数
type ReconcileOptions struct {
	RoundingTolerance string
	OutcomeCacheTTL   time.Duration
}

// NewReconcileService 创建对账引擎
func NewReconcileService(orderRepo repository.OrderRepository, attemptRepo repository.PaymentAttemptRepository, gateway GatewayClient, notifier StatusNotifier, statusMap *StatusMap, options ReconcileOptions) *ReconcileService {
	tolerance := decimal.Zero
	if strings.TrimSpace(options.RoundingTolerance) != "" {
		if parsed, err := decimal.NewFromString(strings.TrimSpace(options.RoundingTolerance)); err == nil && !parsed.IsNegative() {
			tolerance = parsed
		}
	}
	return &ReconcileService{
		orderRepo:   orderRepo,
		attemptRepo: attemptRepo,
		gateway:     gateway,
		notifier:    notifier,
		statusMap:   statusMap,
		tolerance:   tolerance,
		outcomeTTL:  options.OutcomeCacheTTL,
	}
}

// StatusNotificationInput 一次状态通知；金额均为网关上报的绝对值
type StatusNotificationInput struct {
	MerchantOrderNo       string
	ExternalStatus        string
	Channel               string
	TotalGrossAmount      models.Money
	TotalRegistered       models.Money
	TotalShopperPending   models.Money
	TotalAcquirerPending  models.Money
	TotalAcquirerApproved models.Money
	Attempts              []AttemptReport
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	Order          *models.PayOrder
	PreviousStatus string
	NewStatus      string
	Duplicate      bool
}

// ApplyStatusNotification 应用一次状态通知。
// 映射状态、按商户订单号加锁、重复投递幂等跳过、
// 更新账本与状态、级联行项目，提交后再发领域通知
func (s *ReconcileService) ApplyStatusNotification(input StatusNotificationInput) (*ReconcileResult, error) {
	merchantOrderNo := strings.TrimSpace(input.MerchantOrderNo)
	if merchantOrderNo == "" {
		return nil, ErrReportInvalid
	}

	projectStatus := s.statusMap.MapStatus(input.ExternalStatus)
	log := reconcileLogger(
		"merchant_order_no", merchantOrderNo,
		"external_status", input.ExternalStatus,
		"project_status", projectStatus,
		"channel", input.Channel,
	)
	log.Infow("reconcile_notification_received")

	result := &ReconcileResult{NewStatus: projectStatus}
	now := time.Now()

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		attemptRepo := s.attemptRepo.WithTx(tx)

		order, err := orderRepo.GetByMerchantOrderNoForUpdate(merchantOrderNo)
		if err != nil {
			log.Errorw("reconcile_order_fetch_failed", "error", err)
			return ErrOrderFetchFailed
		}
		if order == nil {
			log.Warnw("reconcile_order_not_found")
			return ErrOrderNotFound
		}
		result.Order = order
		result.PreviousStatus = order.Status

		// 重复投递：同一目标状态只生效一次，丢弃视为成功
		if order.Status == projectStatus {
			log.Infow("reconcile_duplicate_delivery", "current_status", order.Status)
			result.Duplicate = true
			return nil
		}
		if isStatusRegression(order.Status, projectStatus) {
			log.Debugw("reconcile_status_regression",
				"current_status", order.Status,
			)
		}

		attempts, err := s.applyAttemptReports(attemptRepo, order, input.Attempts, now)
		if err != nil {
			return err
		}
		if err := recomputeOrderTotals(order, attempts, input, s.tolerance); err != nil {
			log.Errorw("reconcile_ledger_integrity_violation", "error", err)
			return err
		}

		order.Status = projectStatus
		order.UpdatedAt = now
		if err := orderRepo.Update(order); err != nil {
			log.Errorw("reconcile_order_update_failed", "error", err)
			return ErrOrderUpdateFailed
		}

		// 级联是权威的外部修正，无条件覆盖全部行项目
		if itemStatus, ok := s.statusMap.CascadeFor(projectStatus); ok {
			if err := orderRepo.BulkUpdateItemStatus(order.ID, itemStatus); err != nil {
				log.Errorw("reconcile_item_cascade_failed",
					"item_status", itemStatus,
					"error", err,
				)
				return ErrOrderUpdateFailed
			}
			for i := range order.Items {
				order.Items[i].Status = itemStatus
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheOutcome(result)
	if !result.Duplicate {
		log.Infow("reconcile_status_applied",
			"previous_status", result.PreviousStatus,
			"new_status", result.NewStatus,
		)
		if s.notifier != nil {
			s.notifier.NotifyOrderStatusChanged(result.Order, result.PreviousStatus, result.NewStatus)
		}
	}
	return result, nil
}

// PullAndReconcile 根据网关订单标识重拉权威状态报告并对账
func (s *ReconcileService) PullAndReconcile(ctx context.Context, orderKey, channel string) (*ReconcileResult, error) {
	orderKey = strings.TrimSpace(orderKey)
	if orderKey == "" {
		return nil, ErrReportInvalid
	}
	log := reconcileLogger("order_key", orderKey, "channel", channel)

	order, err := s.orderRepo.GetByOrderKey(orderKey)
	if err != nil {
		log.Errorw("reconcile_order_fetch_failed", "error", err)
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		log.Warnw("reconcile_order_not_found")
		return nil, ErrOrderNotFound
	}

	report, err := s.gateway.StatusRequest(ctx, orderKey)
	if err != nil {
		if errors.Is(err, docdata.ErrOrderUnknown) {
			log.Warnw("reconcile_gateway_order_unknown", "error", err)
			return nil, ErrOrderNotFound
		}
		log.Errorw("reconcile_status_pull_failed", "error", err)
		return nil, ErrOrderFetchFailed
	}

	input, err := notificationFromStatusReport(order.MerchantOrderNo, report, channel)
	if err != nil {
		log.Errorw("reconcile_report_invalid", "error", err)
		return nil, err
	}
	return s.ApplyStatusNotification(input)
}

func (s *ReconcileService) applyAttemptReports(attemptRepo *repository.GormPaymentAttemptRepository, order *models.PayOrder, reports []AttemptReport, now time.Time) ([]models.PaymentAttempt, error) {
	for _, report := range reports {
		paymentID := strings.TrimSpace(report.PaymentID)
		if paymentID == "" {
			return nil, ErrReportInvalid
		}
		attempt, err := attemptRepo.GetByPaymentID(paymentID)
		if err != nil {
			return nil, ErrOrderUpdateFailed
		}
		if attempt == nil {
			attempt = &models.PaymentAttempt{
				PaymentID: paymentID,
				OrderID:   order.ID,
				CreatedAt: now,
			}
			if err := applyAttemptReport(attempt, report, now); err != nil {
				return nil, err
			}
			if err := attemptRepo.Create(attempt); err != nil {
				return nil, ErrOrderUpdateFailed
			}
			continue
		}
		if attempt.OrderID != order.ID {
			logger.Warnw("reconcile_attempt_order_mismatch",
				"payment_id", paymentID,
				"stored_order_id", attempt.OrderID,
				"order_id", order.ID,
			)
			return nil, ErrReportInvalid
		}
		if err := applyAttemptReport(attempt, report, now); err != nil {
			return nil, err
		}
		if err := attemptRepo.Update(attempt); err != nil {
			return nil, ErrOrderUpdateFailed
		}
	}
	return attemptRepo.ListByOrderID(order.ID)
}

func (s *ReconcileService) cacheOutcome(result *ReconcileResult) {
	if result == nil || result.Order == nil || s.outcomeTTL <= 0 {
		return
	}
	outcome := cache.ReconcileOutcome{
		OrderKey:        result.Order.OrderKey,
		MerchantOrderNo: result.Order.MerchantOrderNo,
		Status:          result.Order.Status,
		PreviousStatus:  result.PreviousStatus,
		UpdatedAt:       result.Order.UpdatedAt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.SetReconcileOutcome(ctx, outcome, s.outcomeTTL); err != nil {
		logger.Warnw("reconcile_outcome_cache_failed",
			"order_key", result.Order.OrderKey,
			"error", err,
		)
	}
}

// notificationFromStatusReport 把网关状态报告转换为通知输入
func notificationFromStatusReport(merchantOrderNo string, report *docdata.StatusReport, channel string) (StatusNotificationInput, error) {
	input := StatusNotificationInput{
		MerchantOrderNo: merchantOrderNo,
		ExternalStatus:  report.Status,
		Channel:         channel,
	}
	if strings.TrimSpace(report.MerchantOrderNo) != "" {
		input.MerchantOrderNo = strings.TrimSpace(report.MerchantOrderNo)
	}

	var err error
	if input.TotalGrossAmount, err = parseReportMoney(report.TotalGrossAmount); err != nil {
		return input, err
	}
	if input.TotalRegistered, err = parseReportMoney(report.TotalRegistered); err != nil {
		return input, err
	}
	if input.TotalShopperPending, err = parseReportMoney(report.TotalShopperPending); err != nil {
		return input, err
	}
	if input.TotalAcquirerPending, err = parseReportMoney(report.TotalAcquirerPending); err != nil {
		return input, err
	}
	if input.TotalAcquirerApproved, err = parseReportMoney(report.TotalAcquirerApproved); err != nil {
		return input, err
	}

	for _, payment := range report.Payments {
		attempt := AttemptReport{
			PaymentID:       payment.ID,
			Status:          payment.Status,
			Method:          payment.Method,
			ConfidenceLevel: payment.ConfidenceLevel,
		}
		if attempt.AmountAllocated, err = parseReportMoney(payment.AmountAllocated); err != nil {
			return input, err
		}
		if attempt.AmountDebited, err = parseReportMoney(payment.AmountDebited); err != nil {
			return input, err
		}
		if attempt.AmountRefunded, err = parseReportMoney(payment.AmountRefunded); err != nil {
			return input, err
		}
		if attempt.AmountChargedBack, err = parseReportMoney(payment.AmountCharged); err != nil {
			return input, err
		}
		if payment.Method == constants.PaymentMethodBankTransfer && payment.BankTransfer != nil {
			attempt.BankTransfer = &models.BankTransferDetails{
				HolderName:    payment.BankTransfer.HolderName,
				HolderStreet:  payment.BankTransfer.HolderStreet,
				HolderCity:    payment.BankTransfer.HolderCity,
				HolderCountry: payment.BankTransfer.HolderCountry,
				IBAN:          payment.BankTransfer.IBAN,
				BIC:           payment.BankTransfer.BIC,
			}
		}
		input.Attempts = append(input.Attempts, attempt)
	}
	return input, nil
}

func reconcileLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}
