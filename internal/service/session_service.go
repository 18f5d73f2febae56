package service

import (
	"context"
	"strings"
	"time"

	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/payment/docdata"
	"github.com/paybridge-next/internal/repository"

	"gorm.io/gorm"
)

// SessionService 支付会话服务；在网关登记订单并落库订单聚合
type SessionService struct {
	orderRepo   repository.OrderRepository
	gateway     GatewayClient
	sourceTypes *SourceTypeService
}

// NewSessionService 创建支付会话服务
func NewSessionService(orderRepo repository.OrderRepository, gateway GatewayClient, sourceTypes *SourceTypeService) *SessionService {
	return &SessionService{
		orderRepo:   orderRepo,
		gateway:     gateway,
		sourceTypes: sourceTypes,
	}
}

// SessionItemInput 会话行项目输入
type SessionItemInput struct {
	Title    string
	Quantity int
	Amount   models.Money
}

// CreateSessionInput 创建支付会话输入
type CreateSessionInput struct {
	MerchantOrderNo string
	TotalGross      models.Money
	Currency        string
	Description     string
	Language        string
	Country         string
	Shopper         docdata.Shopper
	Items           []SessionItemInput
	Context         context.Context
}

// CreateSessionResult 创建支付会话结果
type CreateSessionResult struct {
	Order *models.PayOrder
}

// CreatePaymentSession 在网关创建支付会话并持久化订单聚合。
// 网关拒绝时不落任何状态，网关侧错误不向调用方泄露细节
func (s *SessionService) CreatePaymentSession(input CreateSessionInput) (*CreateSessionResult, error) {
	merchantOrderNo := strings.TrimSpace(input.MerchantOrderNo)
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if merchantOrderNo == "" || currency == "" || !input.TotalGross.Decimal.IsPositive() {
		return nil, ErrSessionInvalid
	}

	log := reconcileLogger(
		"merchant_order_no", merchantOrderNo,
		"currency", currency,
		"total_gross", input.TotalGross.String(),
	)

	existing, err := s.orderRepo.GetByMerchantOrderNo(merchantOrderNo)
	if err != nil {
		log.Errorw("session_order_fetch_failed", "error", err)
		return nil, ErrOrderFetchFailed
	}
	if existing != nil {
		log.Warnw("session_order_exists", "order_key", existing.OrderKey)
		return nil, ErrSessionExists
	}

	// 资金来源分类先于网关登记确定，下游记账依赖该归类
	sourceType, err := s.sourceTypes.Resolve()
	if err != nil {
		return nil, err
	}

	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}
	created, err := s.gateway.CreateOrder(ctx, docdata.CreateInput{
		MerchantOrderNo: merchantOrderNo,
		TotalGross:      input.TotalGross.String(),
		Currency:        currency,
		Description:     strings.TrimSpace(input.Description),
		Shopper:         input.Shopper,
	})
	if err != nil {
		log.Errorw("session_gateway_create_failed", "error", err)
		return nil, ErrSessionCreateFailed
	}

	now := time.Now()
	order := &models.PayOrder{
		OrderKey:         created.OrderKey,
		MerchantOrderNo:  merchantOrderNo,
		Status:           constants.OrderStatusNew,
		Currency:         currency,
		Language:         strings.TrimSpace(input.Language),
		Country:          strings.ToUpper(strings.TrimSpace(input.Country)),
		Description:      strings.TrimSpace(input.Description),
		SourceTypeID:     sourceType.ID,
		TotalGrossAmount: input.TotalGross,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, models.OrderItem{
			Title:    strings.TrimSpace(item.Title),
			Quantity: quantity,
			Amount:   item.Amount,
			Status:   constants.OrderStatusNew,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).Create(order, items)
	})
	if err != nil {
		log.Errorw("session_order_persist_failed",
			"order_key", created.OrderKey,
			"error", err,
		)
		return nil, ErrSessionCreateFailed
	}
	order.Items = items

	log.Infow("session_created", "order_key", order.OrderKey)
	return &CreateSessionResult{Order: order}, nil
}
