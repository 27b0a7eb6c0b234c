package model

import "time"

// カートの明細
// 同じカート内で同じ書籍の明細は1行だけ（数量を加算する）。
type CartItem struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID   int64 `gorm:"not null;uniqueIndex:idx_cart_items_cart_book,priority:1" json:"cart_id"`
	BookID   int64 `gorm:"not null;uniqueIndex:idx_cart_items_cart_book,priority:2;index" json:"book_id"`
	Quantity int64 `gorm:"not null" json:"quantity"`
	// 楽観ロック用
	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
