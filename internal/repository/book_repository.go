package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

// 一覧検索
type BookListQuery struct {
	Page  int
	Limit int
	Q     string
	Sort  string

	// 完全一致（大文字小文字は無視）。空なら絞り込まない
	Titles     []string
	Authors    []string
	CategoryID *int64
}

// 書籍の永続化（保存・取得）だけを約束。
type BookRepository interface {
	List(ctx context.Context, q BookListQuery) ([]model.Book, int64, error)
	FindByID(ctx context.Context, id int64) (model.Book, error)
	// 見つかった分だけ返す（削除済みは含まない）
	FindByIDs(ctx context.Context, ids []int64) ([]model.Book, error)

	Create(ctx context.Context, b model.Book) (model.Book, error)
	Update(ctx context.Context, b model.Book) error
	SoftDelete(ctx context.Context, id int64) error
}
