package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PaymentAttempt 单次支付尝试；主键为网关侧支付ID
type PaymentAttempt struct {
	PaymentID       string `gorm:"primarykey;type:varchar(64)" json:"payment_id"` // 网关支付ID
	OrderID         uint   `gorm:"index;not null" json:"order_id"`                // 所属订单ID
	Status          string `gorm:"index;not null" json:"status"`                  // 网关尝试状态
	PaymentMethod   string `gorm:"type:varchar(64)" json:"payment_method"`        // 支付方式
	ConfidenceLevel string `gorm:"type:varchar(64)" json:"confidence_level"`      // 网关置信度

	// 尝试级子账本；allocated/debited 与 refunded/charged_back 只增不减
	AmountAllocated   Money `gorm:"type:decimal(20,2);not null;default:0" json:"amount_allocated"`
	AmountDebited     Money `gorm:"type:decimal(20,2);not null;default:0" json:"amount_debited"`
	AmountRefunded    Money `gorm:"type:decimal(20,2);not null;default:0" json:"amount_refunded"`
	AmountChargedBack Money `gorm:"type:decimal(20,2);not null;default:0" json:"amount_charged_back"`

	Details AttemptDetails `gorm:"type:json" json:"details"` // 按支付方式区分的扩展数据

	CreatedAt time.Time `json:"created_at"` // 创建时间
	UpdatedAt time.Time `json:"updated_at"` // 更新时间
}

// TableName 指定表名
func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

// BankTransferDetails 银行转账扩展字段
type BankTransferDetails struct {
	HolderName    string `json:"holder_name,omitempty"`
	HolderStreet  string `json:"holder_street,omitempty"`
	HolderCity    string `json:"holder_city,omitempty"`
	HolderCountry string `json:"holder_country,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	BIC           string `json:"bic,omitempty"`
}

// AttemptDetails 支付尝试的扩展数据；method 作为变体标签，
// 当前仅银行转账携带扩展字段，其余方式为空载荷
type AttemptDetails struct {
	Method       string               `json:"method,omitempty"`
	BankTransfer *BankTransferDetails `json:"bank_transfer,omitempty"`
}

// IsZero 判断是否为空载荷
func (d AttemptDetails) IsZero() bool {
	return d.Method == "" && d.BankTransfer == nil
}

// Value 用于数据库写入
func (d AttemptDetails) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan 用于数据库读取
func (d *AttemptDetails) Scan(value interface{}) error {
	if value == nil {
		*d = AttemptDetails{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*d = AttemptDetails{}
			return nil
		}
		return json.Unmarshal(v, d)
	case string:
		if v == "" {
			*d = AttemptDetails{}
			return nil
		}
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported attempt details type: %T", value)
	}
}
