package models

import (
	"time"
)

// PayOrder 支付订单聚合；网关通知最终收敛到的持久化主体，永不删除
type PayOrder struct {
	ID uint `gorm:"primarykey" json:"id"`
	// OrderKey 网关订单标识，创建后不可变
	OrderKey        string `gorm:"uniqueIndex;type:varchar(64);not null" json:"order_key"`
	MerchantOrderNo string `gorm:"uniqueIndex;type:varchar(64);not null" json:"merchant_order_no"`
	// Status 项目侧订单状态；存储层不约束取值，未知状态原样落库
	Status      string `gorm:"index;not null" json:"status"`
	Currency    string `gorm:"type:varchar(8);not null" json:"currency"`
	Language    string `gorm:"type:varchar(8)" json:"language,omitempty"`
	Country     string `gorm:"type:varchar(8)" json:"country,omitempty"`
	Description string `gorm:"type:varchar(255)" json:"description,omitempty"`
	// SourceTypeID 资金来源分类，供下游记账归类
	SourceTypeID uint `gorm:"index" json:"source_type_id,omitempty"`

	// 订单级账本；registered / pending / approved 为网关绝对值，
	// captured / refunded / charged_back 由各支付尝试汇总派生
	TotalGrossAmount      Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_gross_amount"`
	TotalRegistered       Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_registered"`
	TotalShopperPending   Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_shopper_pending"`
	TotalAcquirerPending  Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_acquirer_pending"`
	TotalAcquirerApproved Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_acquirer_approved"`
	TotalCaptured         Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_captured"`
	TotalRefunded         Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_refunded"`
	TotalChargedBack      Money `gorm:"type:decimal(20,2);not null;default:0" json:"total_charged_back"`

	CreatedAt time.Time `gorm:"index" json:"created_at"` // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"` // 最近一次对账时间

	Items    []OrderItem      `gorm:"foreignKey:OrderID" json:"items,omitempty"`    // 行项目
	Attempts []PaymentAttempt `gorm:"foreignKey:OrderID" json:"attempts,omitempty"` // 支付尝试
}

// TableName 指定表名
func (PayOrder) TableName() string {
	return "pay_orders"
}
