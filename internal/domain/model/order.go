package model

import (
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// 配送先住所の文字数
const (
	ShippingAddressMinLen = 7
	ShippingAddressMaxLen = 40
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// 文字列からステータスへ。未知の値は false。
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	if !st.IsValid() {
		return "", false
	}
	return st, true
}

// TotalはOrderItemの合計（作成時に一度だけ計算する）
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency,priority:1" json:"user_id"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	OrderDate       time.Time       `gorm:"not null" json:"order_date"`
	ShippingAddress string          `gorm:"type:varchar(40);not null" json:"shipping_address"`
	Total           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	IdempotencyKey  *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency,priority:2" json:"-"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 住所は前後の空白を除いて 7〜40 文字
func ValidShippingAddress(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= ShippingAddressMinLen && n <= ShippingAddressMaxLen
}
