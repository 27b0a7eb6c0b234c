package model

import "time"

// 1ユーザーにつきカートは1つ（会員登録時に作成、通常は削除しない）
// 明細は cart_items 側が持つ。注文確定のたびに明細が空になる。
type ShoppingCart struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
