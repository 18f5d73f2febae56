package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/payment/docdata"
	"github.com/paybridge-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	createResult *docdata.CreateResult
	createErr    error
	report       *docdata.StatusReport
	statusErr    error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, input docdata.CreateInput) (*docdata.CreateResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeGateway) StatusRequest(ctx context.Context, orderKey string) (*docdata.StatusReport, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.report, nil
}

type notifierCall struct {
	OrderKey       string
	PreviousStatus string
	NewStatus      string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *recordingNotifier) NotifyOrderStatusChanged(order *models.PayOrder, previousStatus, newStatus string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{
		OrderKey:       order.OrderKey,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
	})
}

func (n *recordingNotifier) Calls() []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifierCall(nil), n.calls...)
}

func setupReconcileDB(t *testing.T, name string) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PayOrder{}, &models.OrderItem{}, &models.PaymentAttempt{}, &models.SourceType{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
}

func newTestReconcileService(t *testing.T, gateway GatewayClient, notifier StatusNotifier) *ReconcileService {
	t.Helper()
	orderRepo := repository.NewOrderRepository(models.DB)
	attemptRepo := repository.NewPaymentAttemptRepository(models.DB)
	statusMap := NewStatusMap(map[string]string{
		"CHARGED-BACK": constants.OrderStatusChargedBack,
	}, map[string]string{
		constants.OrderStatusPaid: constants.OrderStatusPaid,
	})
	return NewReconcileService(orderRepo, attemptRepo, gateway, notifier, statusMap, ReconcileOptions{
		RoundingTolerance: "0.05",
	})
}

func seedOrder(t *testing.T, merchantOrderNo, orderKey, status, gross string, itemCount int) *models.PayOrder {
	t.Helper()
	order := &models.PayOrder{
		OrderKey:         orderKey,
		MerchantOrderNo:  merchantOrderNo,
		Status:           status,
		Currency:         "EUR",
		TotalGrossAmount: mustMoney(t, gross),
	}
	items := make([]models.OrderItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		items = append(items, models.OrderItem{
			Title:    fmt.Sprintf("item-%d", i+1),
			Quantity: 1,
			Amount:   mustMoney(t, "50.00"),
			Status:   constants.OrderStatusNew,
		})
	}
	if err := repository.NewOrderRepository(models.DB).Create(order, items); err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	return order
}

func TestApplyStatusNotificationAppliesStatusLedgerAndCascade(t *testing.T) {
	setupReconcileDB(t, "reconcile_apply")
	notifier := &recordingNotifier{}
	svc := newTestReconcileService(t, &fakeGateway{}, notifier)
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 2)

	result, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPaid,
		Channel:          constants.NotificationChannelCallback,
		TotalGrossAmount: mustMoney(t, "100.00"),
		TotalRegistered:  mustMoney(t, "100.00"),
		Attempts: []AttemptReport{
			{
				PaymentID:       "pay-1",
				Status:          constants.AttemptStatusPaid,
				Method:          constants.PaymentMethodIdeal,
				AmountAllocated: mustMoney(t, "100.00"),
				AmountDebited:   mustMoney(t, "100.00"),
			},
		},
	})
	if err != nil {
		t.Fatalf("apply notification failed: %v", err)
	}
	if result.Duplicate {
		t.Fatalf("first delivery must not be flagged duplicate")
	}
	if result.PreviousStatus != constants.OrderStatusNew || result.NewStatus != constants.OrderStatusPaid {
		t.Fatalf("unexpected transition: %s -> %s", result.PreviousStatus, result.NewStatus)
	}

	stored, err := repository.NewOrderRepository(models.DB).GetByMerchantOrderNo("ORD-1001")
	if err != nil || stored == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPaid {
		t.Fatalf("expected stored status paid, got %s", stored.Status)
	}
	if stored.TotalCaptured.String() != "100.00" {
		t.Fatalf("expected captured 100.00, got %s", stored.TotalCaptured.String())
	}
	for _, item := range stored.Items {
		if item.Status != constants.OrderStatusPaid {
			t.Fatalf("expected cascaded item status paid, got %s", item.Status)
		}
	}
	if len(stored.Attempts) != 1 || stored.Attempts[0].Status != constants.AttemptStatusPaid {
		t.Fatalf("expected one paid attempt, got %+v", stored.Attempts)
	}

	calls := notifier.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(calls))
	}
	if calls[0].PreviousStatus != constants.OrderStatusNew || calls[0].NewStatus != constants.OrderStatusPaid {
		t.Fatalf("unexpected notification: %+v", calls[0])
	}
}

func TestApplyStatusNotificationDuplicateDeliveryIsSilentSuccess(t *testing.T) {
	setupReconcileDB(t, "reconcile_duplicate")
	notifier := &recordingNotifier{}
	svc := newTestReconcileService(t, &fakeGateway{}, notifier)
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 1)

	input := StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPaid,
		TotalGrossAmount: mustMoney(t, "100.00"),
		Attempts: []AttemptReport{
			{
				PaymentID:     "pay-1",
				Status:        constants.AttemptStatusPaid,
				AmountDebited: mustMoney(t, "100.00"),
			},
		},
	}

	if _, err := svc.ApplyStatusNotification(input); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	second, err := svc.ApplyStatusNotification(input)
	if err != nil {
		t.Fatalf("duplicate delivery must succeed, got %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected duplicate flag on second delivery")
	}
	if calls := notifier.Calls(); len(calls) != 1 {
		t.Fatalf("duplicate delivery must not notify again, got %d calls", len(calls))
	}
}

func TestApplyStatusNotificationConcurrentSameStatus(t *testing.T) {
	setupReconcileDB(t, "reconcile_race")
	sqlDB, err := models.DB.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 单连接串行化写事务，对应生产库行级锁下的争用形态
	sqlDB.SetMaxOpenConns(1)

	notifier := &recordingNotifier{}
	svc := newTestReconcileService(t, &fakeGateway{}, notifier)
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 0)

	input := StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPaid,
		TotalGrossAmount: mustMoney(t, "100.00"),
		Attempts: []AttemptReport{
			{PaymentID: "pay-1", Status: constants.AttemptStatusPaid, AmountDebited: mustMoney(t, "100.00")},
		},
	}

	var wg sync.WaitGroup
	results := make([]*ReconcileResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ApplyStatusNotification(input)
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("racing delivery %d failed: %v", i, errs[i])
		}
		if !results[i].Duplicate {
			applied++
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied transition, got %d", applied)
	}

	stored, err := repository.NewOrderRepository(models.DB).GetByMerchantOrderNo("ORD-1001")
	if err != nil || stored == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPaid {
		t.Fatalf("expected stored status paid, got %s", stored.Status)
	}
	if stored.TotalCaptured.String() != "100.00" {
		t.Fatalf("expected captured 100.00, got %s", stored.TotalCaptured.String())
	}
	if calls := notifier.Calls(); len(calls) != 1 {
		t.Fatalf("racing deliveries must notify exactly once, got %d calls", len(calls))
	}
}

func TestApplyStatusNotificationOrderNotFound(t *testing.T) {
	setupReconcileDB(t, "reconcile_not_found")
	svc := newTestReconcileService(t, &fakeGateway{}, &recordingNotifier{})

	_, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo: "ORD-MISSING",
		ExternalStatus:  constants.OrderStatusPaid,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	var count int64
	if err := models.DB.Model(&models.PayOrder{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("not-found delivery must not create state, got %d orders", count)
	}
}

func TestApplyStatusNotificationUnknownStatusStoredAsIs(t *testing.T) {
	setupReconcileDB(t, "reconcile_unknown_status")
	notifier := &recordingNotifier{}
	svc := newTestReconcileService(t, &fakeGateway{}, notifier)
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 1)

	result, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo: "ORD-1001",
		ExternalStatus:  "FUTURE_GATEWAY_STATE",
	})
	if err != nil {
		t.Fatalf("unknown status must still apply, got %v", err)
	}
	if result.NewStatus != "FUTURE_GATEWAY_STATE" {
		t.Fatalf("expected pass-through status, got %s", result.NewStatus)
	}

	stored, _ := repository.NewOrderRepository(models.DB).GetByMerchantOrderNo("ORD-1001")
	if stored.Status != "FUTURE_GATEWAY_STATE" {
		t.Fatalf("expected stored pass-through status, got %s", stored.Status)
	}
	// 未知状态没有级联配置，行项目保持原状
	for _, item := range stored.Items {
		if item.Status != constants.OrderStatusNew {
			t.Fatalf("expected item status untouched, got %s", item.Status)
		}
	}
}

func TestApplyStatusNotificationLedgerViolationAbortsTransaction(t *testing.T) {
	setupReconcileDB(t, "reconcile_ledger_abort")
	notifier := &recordingNotifier{}
	svc := newTestReconcileService(t, &fakeGateway{}, notifier)
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 1)

	// 先写入 50.00 的尝试
	if _, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPending,
		TotalGrossAmount: mustMoney(t, "100.00"),
		Attempts: []AttemptReport{
			{PaymentID: "pay-1", Status: constants.AttemptStatusAuthorized, AmountDebited: mustMoney(t, "50.00")},
		},
	}); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	// 回退的绝对值必须整体中止，状态保持 pending
	_, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPaid,
		TotalGrossAmount: mustMoney(t, "100.00"),
		Attempts: []AttemptReport{
			{PaymentID: "pay-1", Status: constants.AttemptStatusPaid, AmountDebited: mustMoney(t, "40.00")},
		},
	})
	if !errors.Is(err, ErrLedgerIntegrity) {
		t.Fatalf("expected ErrLedgerIntegrity, got %v", err)
	}

	stored, _ := repository.NewOrderRepository(models.DB).GetByMerchantOrderNo("ORD-1001")
	if stored.Status != constants.OrderStatusPending {
		t.Fatalf("violating delivery must not change status, got %s", stored.Status)
	}
	if len(stored.Attempts) != 1 || stored.Attempts[0].AmountDebited.String() != "50.00" {
		t.Fatalf("attempt ledger must stay at 50.00, got %+v", stored.Attempts)
	}
	if calls := notifier.Calls(); len(calls) != 1 {
		t.Fatalf("aborted delivery must not notify, got %d calls", len(calls))
	}
}

func TestApplyStatusNotificationRepeatedAbsoluteIsNotDoubled(t *testing.T) {
	setupReconcileDB(t, "reconcile_absolute")
	svc := newTestReconcileService(t, &fakeGateway{}, &recordingNotifier{})
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 1)

	attempt := AttemptReport{
		PaymentID:     "pay-1",
		Status:        constants.AttemptStatusPaid,
		AmountDebited: mustMoney(t, "50.00"),
	}
	if _, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPending,
		TotalGrossAmount: mustMoney(t, "100.00"),
		Attempts:         []AttemptReport{attempt},
	}); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if _, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo:  "ORD-1001",
		ExternalStatus:   constants.OrderStatusPaid,
		TotalGrossAmount: mustMoney(t, "100.00"),
		Attempts:         []AttemptReport{attempt},
	}); err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}

	stored, _ := repository.NewOrderRepository(models.DB).GetByMerchantOrderNo("ORD-1001")
	if stored.TotalCaptured.String() != "50.00" {
		t.Fatalf("absolute overwrite must yield 50.00, not doubled: got %s", stored.TotalCaptured.String())
	}
}

func TestApplyStatusNotificationLessAdvancedStatusStillApplied(t *testing.T) {
	setupReconcileDB(t, "reconcile_regression")
	svc := newTestReconcileService(t, &fakeGateway{}, &recordingNotifier{})
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusPaid, "100.00", 0)

	result, err := svc.ApplyStatusNotification(StatusNotificationInput{
		MerchantOrderNo: "ORD-1001",
		ExternalStatus:  constants.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("less advanced status must still apply, got %v", err)
	}
	if result.NewStatus != constants.OrderStatusPending {
		t.Fatalf("expected pending applied, got %s", result.NewStatus)
	}
}

func TestPullAndReconcileUsesGatewayReport(t *testing.T) {
	setupReconcileDB(t, "reconcile_pull")
	notifier := &recordingNotifier{}
	gateway := &fakeGateway{
		report: &docdata.StatusReport{
			OrderKey:         "ODK-1001",
			MerchantOrderNo:  "ORD-1001",
			Status:           constants.OrderStatusPaid,
			TotalGrossAmount: "100.00",
			TotalRegistered:  "100.00",
			Payments: []docdata.PaymentReport{
				{
					ID:            "pay-1",
					Status:        constants.AttemptStatusPaid,
					Method:        constants.PaymentMethodBankTransfer,
					AmountDebited: "100.00",
					BankTransfer: &docdata.BankTransferReport{
						HolderName: "J. Jansen",
						IBAN:       "NL02ABNA0123456789",
					},
				},
			},
		},
	}
	svc := newTestReconcileService(t, gateway, notifier)
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 1)

	result, err := svc.PullAndReconcile(context.Background(), "ODK-1001", constants.NotificationChannelReturn)
	if err != nil {
		t.Fatalf("pull and reconcile failed: %v", err)
	}
	if result.NewStatus != constants.OrderStatusPaid {
		t.Fatalf("expected paid after pull, got %s", result.NewStatus)
	}

	attempt, err := repository.NewPaymentAttemptRepository(models.DB).GetByPaymentID("pay-1")
	if err != nil || attempt == nil {
		t.Fatalf("expected stored attempt, err=%v", err)
	}
	if attempt.Details.BankTransfer == nil || attempt.Details.BankTransfer.IBAN != "NL02ABNA0123456789" {
		t.Fatalf("expected bank transfer details decoded, got %+v", attempt.Details)
	}
}

func TestPullAndReconcileUnknownOrderKey(t *testing.T) {
	setupReconcileDB(t, "reconcile_pull_missing")
	svc := newTestReconcileService(t, &fakeGateway{}, &recordingNotifier{})

	_, err := svc.PullAndReconcile(context.Background(), "ODK-MISSING", constants.NotificationChannelCallback)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPullAndReconcileGatewayUnknownOrder(t *testing.T) {
	setupReconcileDB(t, "reconcile_pull_gateway_unknown")
	gateway := &fakeGateway{statusErr: docdata.ErrOrderUnknown}
	svc := newTestReconcileService(t, gateway, &recordingNotifier{})
	seedOrder(t, "ORD-1001", "ODK-1001", constants.OrderStatusNew, "100.00", 0)

	_, err := svc.PullAndReconcile(context.Background(), "ODK-1001", constants.NotificationChannelCallback)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on gateway unknown order, got %v", err)
	}
}
