package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 書籍（カタログ）
// 価格は注文明細作成時にスナップショットされる。
type Book struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Author      string          `gorm:"type:varchar(255);not null" json:"author"`
	ISBN        string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"isbn"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Description string          `gorm:"type:text" json:"description"`
	CoverImage  string          `gorm:"type:varchar(512)" json:"cover_image"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// book_categories から詰める（カラムではない）
	CategoryIDs []int64 `gorm:"-" json:"category_ids"`
}
