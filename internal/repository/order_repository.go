package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/paybridge-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.PayOrder, items []models.OrderItem) error
	GetByID(id uint) (*models.PayOrder, error)
	GetByOrderKey(orderKey string) (*models.PayOrder, error)
	GetByMerchantOrderNo(merchantOrderNo string) (*models.PayOrder, error)
	GetByMerchantOrderNoForUpdate(merchantOrderNo string) (*models.PayOrder, error)
	Update(order *models.PayOrder) error
	BulkUpdateItemStatus(orderID uint, status string) error
	ListStaleUnsettled(statuses []string, updatedBefore time.Time, limit int) ([]models.PayOrder, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单与行项目
func (r *GormOrderRepository) Create(order *models.PayOrder, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.PayOrder, error) {
	var order models.PayOrder
	if err := r.db.Preload("Items").Preload("Attempts").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderKey 根据网关订单标识获取订单
func (r *GormOrderRepository) GetByOrderKey(orderKey string) (*models.PayOrder, error) {
	var order models.PayOrder
	if err := r.db.Preload("Items").Preload("Attempts").
		Where("order_key = ?", orderKey).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByMerchantOrderNo 根据商户订单号获取订单
func (r *GormOrderRepository) GetByMerchantOrderNo(merchantOrderNo string) (*models.PayOrder, error) {
	var order models.PayOrder
	if err := r.db.Preload("Items").Preload("Attempts").
		Where("merchant_order_no = ?", merchantOrderNo).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByMerchantOrderNoForUpdate 按商户订单号加行锁获取订单；
// 同一订单的并发通知在此串行化，不同订单互不阻塞
func (r *GormOrderRepository) GetByMerchantOrderNoForUpdate(merchantOrderNo string) (*models.PayOrder, error) {
	query := r.db
	// sqlite 为单写者模型，不支持 FOR UPDATE 语法
	if dbDialectName(r.db) != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.PayOrder
	if err := query.
		Where("merchant_order_no = ?", merchantOrderNo).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.db.Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Update 保存订单聚合
func (r *GormOrderRepository) Update(order *models.PayOrder) error {
	return r.db.Omit("Items", "Attempts").Save(order).Error
}

// BulkUpdateItemStatus 批量强制更新订单的全部行项目状态；
// 该路径表示权威的外部修正，绕过行项目级校验
func (r *GormOrderRepository) BulkUpdateItemStatus(orderID uint, status string) error {
	return r.db.Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// ListStaleUnsettled 列出长时间未更新的非终态订单，供重新拉取对账
func (r *GormOrderRepository) ListStaleUnsettled(statuses []string, updatedBefore time.Time, limit int) ([]models.PayOrder, error) {
	var orders []models.PayOrder
	if len(statuses) == 0 {
		return orders, nil
	}
	query := r.db.
		Where("status IN ?", statuses).
		Where("updated_at < ?", updatedBefore).
		Order("updated_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}
