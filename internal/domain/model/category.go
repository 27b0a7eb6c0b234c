package model

import (
	"time"

	"gorm.io/gorm"
)

// 書籍カテゴリ
type Category struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// 書籍とカテゴリの多対多
type BookCategory struct {
	BookID     int64 `gorm:"primaryKey"`
	CategoryID int64 `gorm:"primaryKey;index"`
}

func (BookCategory) TableName() string {
	return "book_categories"
}
