package repository

import (
	"errors"

	"github.com/paybridge-next/internal/models"

	"gorm.io/gorm"
)

// PaymentAttemptRepository 支付尝试数据访问接口
type PaymentAttemptRepository interface {
	GetByPaymentID(paymentID string) (*models.PaymentAttempt, error)
	ListByOrderID(orderID uint) ([]models.PaymentAttempt, error)
	Create(attempt *models.PaymentAttempt) error
	Update(attempt *models.PaymentAttempt) error
	WithTx(tx *gorm.DB) *GormPaymentAttemptRepository
}

// GormPaymentAttemptRepository GORM 实现
type GormPaymentAttemptRepository struct {
	db *gorm.DB
}

// NewPaymentAttemptRepository 创建支付尝试仓库
func NewPaymentAttemptRepository(db *gorm.DB) *GormPaymentAttemptRepository {
	return &GormPaymentAttemptRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentAttemptRepository) WithTx(tx *gorm.DB) *GormPaymentAttemptRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentAttemptRepository{db: tx}
}

// GetByPaymentID 根据网关支付ID获取支付尝试
func (r *GormPaymentAttemptRepository) GetByPaymentID(paymentID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.Where("payment_id = ?", paymentID).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// ListByOrderID 列出订单的全部支付尝试
func (r *GormPaymentAttemptRepository) ListByOrderID(orderID uint) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	if err := r.db.Where("order_id = ?", orderID).
		Order("payment_id asc").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// Create 创建支付尝试
func (r *GormPaymentAttemptRepository) Create(attempt *models.PaymentAttempt) error {
	return r.db.Create(attempt).Error
}

// Update 保存支付尝试
func (r *GormPaymentAttemptRepository) Update(attempt *models.PaymentAttempt) error {
	return r.db.Save(attempt).Error
}
