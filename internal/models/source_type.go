package models

import (
	"time"
)

// SourceType 收款来源分类；按固定 code 查找或创建的规范记录
type SourceType struct {
	ID        uint      `gorm:"primarykey" json:"id"`                         // 主键
	Code      string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"code"` // 固定编码
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`       // 展示名称
	CreatedAt time.Time `json:"created_at"`                                   // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                   // 更新时间
}

// TableName 指定表名
func (SourceType) TableName() string {
	return "source_types"
}
