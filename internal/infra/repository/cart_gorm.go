package repository

import (
	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
	"context"
	"time"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 会員登録時に1回だけ作る（user_idはunique）
func (r *CartGormRepository) Create(ctx context.Context, cart model.ShoppingCart) (model.ShoppingCart, error) {
	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		if isDuplicatedKey(err) {
			return model.ShoppingCart{}, repo.ErrConflict
		}
		return model.ShoppingCart{}, err
	}
	return cart, nil
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.ShoppingCart, error) {
	var cart model.ShoppingCart

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error

	if isNotFound(err) {
		return model.ShoppingCart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ShoppingCart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) Touch(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.ShoppingCart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now())

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
