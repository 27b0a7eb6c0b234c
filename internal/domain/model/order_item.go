package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細（作成後は変更しない）
// Priceは作成時点の書籍価格。後から書籍の価格が変わっても影響しない。
type OrderItem struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64           `gorm:"not null;index" json:"order_id"`
	BookID            int64           `gorm:"not null;index" json:"book_id"`
	BookTitleSnapshot string          `gorm:"type:varchar(255);not null" json:"book_title"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	Price             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 単価 × 数量
func (i OrderItem) LineTotal() decimal.Decimal {
	return LineTotal(i.Price, i.Quantity)
}
