package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context, page, limit int) ([]model.Category, int64, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	// 見つかった分だけ返す（削除済みは含まない）
	FindByIDs(ctx context.Context, ids []int64) ([]model.Category, error)

	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	SoftDelete(ctx context.Context, id int64) error

	// 書籍のカテゴリを置き換える
	SetBookCategories(ctx context.Context, bookID int64, categoryIDs []int64) error
	// bookID → 有効なカテゴリID（昇順）
	CategoryIDsByBooks(ctx context.Context, bookIDs []int64) (map[int64][]int64, error)
}
