package repository

import (
	"context"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

// 名前順
func (r *CategoryGormRepository) List(ctx context.Context, page, limit int) ([]model.Category, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Category{})
	if err := q.Count(&total).Error; err != nil {
		return []model.Category{}, 0, err
	}

	var items []model.Category
	offset := (page - 1) * limit
	if err := q.Order("name asc").Order("id asc").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return []model.Category{}, 0, err
	}
	return items, total, nil
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).First(&c, id).Error
	if isNotFound(err) {
		return model.Category{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *CategoryGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Category, error) {
	if len(ids) == 0 {
		return []model.Category{}, nil
	}
	var items []model.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return []model.Category{}, err
	}
	return items, nil
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 論理削除。book_categories の行は残すが、CategoryIDsByBooks からは外れる
func (r *CategoryGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 全部消してから入れ直す（呼び出し側のtxで動かす）
func (r *CategoryGormRepository) SetBookCategories(ctx context.Context, bookID int64, categoryIDs []int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("book_id = ?", bookID).Delete(&model.BookCategory{}).Error; err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}

	rows := make([]model.BookCategory, 0, len(categoryIDs))
	seen := make(map[int64]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, model.BookCategory{BookID: bookID, CategoryID: id})
	}
	return db.Create(&rows).Error
}

func (r *CategoryGormRepository) CategoryIDsByBooks(ctx context.Context, bookIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	var rows []model.BookCategory
	err := r.db.WithContext(ctx).
		Model(&model.BookCategory{}).
		Select("book_categories.book_id, book_categories.category_id").
		Joins("JOIN categories ON categories.id = book_categories.category_id AND categories.deleted_at IS NULL").
		Where("book_categories.book_id IN ?", bookIDs).
		Order("book_categories.book_id asc").
		Order("book_categories.category_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.BookID] = append(out[row.BookID], row.CategoryID)
	}
	return out, nil
}
