package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/paybridge-next/internal/models"

	"github.com/shopspring/decimal"
)

// AttemptReport 单次支付尝试上报的绝对值子账本
type AttemptReport struct {
	PaymentID         string
	Status            string
	Method            string
	ConfidenceLevel   string
	AmountAllocated   models.Money
	AmountDebited     models.Money
	AmountRefunded    models.Money
	AmountChargedBack models.Money
	BankTransfer      *models.BankTransferDetails
}

// applyAttemptReport 将上报的绝对值覆写到支付尝试子账本；
// allocated/debited 与 refunded/charged_back 只增不减，负值与回退视为账本破坏
func applyAttemptReport(attempt *models.PaymentAttempt, report AttemptReport, now time.Time) error {
	fields := []struct {
		name     string
		stored   decimal.Decimal
		reported decimal.Decimal
	}{
		{"amount_allocated", attempt.AmountAllocated.Decimal, report.AmountAllocated.Decimal},
		{"amount_debited", attempt.AmountDebited.Decimal, report.AmountDebited.Decimal},
		{"amount_refunded", attempt.AmountRefunded.Decimal, report.AmountRefunded.Decimal},
		{"amount_charged_back", attempt.AmountChargedBack.Decimal, report.AmountChargedBack.Decimal},
	}
	for _, f := range fields {
		if f.reported.IsNegative() {
			return fmt.Errorf("%w: %s negative for payment %s", ErrLedgerIntegrity, f.name, attempt.PaymentID)
		}
		if f.reported.LessThan(f.stored) {
			return fmt.Errorf("%w: %s decreased for payment %s (%s -> %s)",
				ErrLedgerIntegrity, f.name, attempt.PaymentID, f.stored.StringFixed(2), f.reported.StringFixed(2))
		}
	}

	attempt.Status = report.Status
	if report.Method != "" {
		attempt.PaymentMethod = report.Method
	}
	if report.ConfidenceLevel != "" {
		attempt.ConfidenceLevel = report.ConfidenceLevel
	}
	attempt.AmountAllocated = report.AmountAllocated
	attempt.AmountDebited = report.AmountDebited
	attempt.AmountRefunded = report.AmountRefunded
	attempt.AmountChargedBack = report.AmountChargedBack
	if report.BankTransfer != nil {
		attempt.Details = models.AttemptDetails{
			Method:       report.Method,
			BankTransfer: report.BankTransfer,
		}
	}
	attempt.UpdatedAt = now
	return nil
}

// recomputeOrderTotals 重算订单级账本。
// registered / shopper_pending / acquirer_pending / acquirer_approved 取通知的绝对值；
// captured / refunded / charged_back 由全部支付尝试汇总派生，避免增量补丁漂移
func recomputeOrderTotals(order *models.PayOrder, attempts []models.PaymentAttempt, input StatusNotificationInput, tolerance decimal.Decimal) error {
	absolutes := []struct {
		name  string
		value decimal.Decimal
	}{
		{"total_gross_amount", input.TotalGrossAmount.Decimal},
		{"total_registered", input.TotalRegistered.Decimal},
		{"total_shopper_pending", input.TotalShopperPending.Decimal},
		{"total_acquirer_pending", input.TotalAcquirerPending.Decimal},
		{"total_acquirer_approved", input.TotalAcquirerApproved.Decimal},
	}
	for _, f := range absolutes {
		if f.value.IsNegative() {
			return fmt.Errorf("%w: %s negative for order %s", ErrLedgerIntegrity, f.name, order.MerchantOrderNo)
		}
	}

	captured := decimal.Zero
	refunded := decimal.Zero
	chargedBack := decimal.Zero
	for _, attempt := range attempts {
		captured = captured.Add(attempt.AmountDebited.Decimal)
		refunded = refunded.Add(attempt.AmountRefunded.Decimal)
		chargedBack = chargedBack.Add(attempt.AmountChargedBack.Decimal)
	}

	gross := input.TotalGrossAmount.Decimal
	if gross.IsZero() {
		gross = order.TotalGrossAmount.Decimal
	}
	if gross.IsPositive() {
		settled := captured.Add(refunded).Add(chargedBack)
		if settled.GreaterThan(gross.Add(tolerance)) {
			return fmt.Errorf("%w: settled %s exceeds gross %s for order %s",
				ErrLedgerIntegrity, settled.StringFixed(2), gross.StringFixed(2), order.MerchantOrderNo)
		}
	}

	if input.TotalGrossAmount.Decimal.IsPositive() {
		order.TotalGrossAmount = input.TotalGrossAmount
	}
	order.TotalRegistered = input.TotalRegistered
	order.TotalShopperPending = input.TotalShopperPending
	order.TotalAcquirerPending = input.TotalAcquirerPending
	order.TotalAcquirerApproved = input.TotalAcquirerApproved
	order.TotalCaptured = models.NewMoneyFromDecimal(captured)
	order.TotalRefunded = models.NewMoneyFromDecimal(refunded)
	order.TotalChargedBack = models.NewMoneyFromDecimal(chargedBack)
	return nil
}

// parseReportMoney 解析网关报告中的金额字符串；空串按零处理
func parseReportMoney(value string) (models.Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return models.Money{}, nil
	}
	money, err := models.NewMoneyFromString(trimmed)
	if err != nil {
		return models.Money{}, fmt.Errorf("%w: bad amount %q", ErrReportInvalid, value)
	}
	return money, nil
}
