package models

import (
	"time"
)

// OrderItem 订单行项目
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                           // 主键
	OrderID   uint      `gorm:"index;not null" json:"order_id"`                 // 所属订单ID
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`        // 商品名称
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`             // 数量
	Amount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 行金额
	Status    string    `gorm:"index;not null" json:"status"`                   // 行项目状态，随订单状态级联
	CreatedAt time.Time `json:"created_at"`                                     // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "pay_order_items"
}
