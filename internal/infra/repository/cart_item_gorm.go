package repository

import (
	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一書籍は数量加算
// 既存行は FOR UPDATE + version で更新する。負けた側は ErrConflict。
func (r *CartItemGormRepository) UpsertByCartAndBook(ctx context.Context, cartID int64, bookID int64, addQty int64) (model.CartItem, error) {
	if !model.ValidQuantity(addQty) {
		return model.CartItem{}, errors.New("invalid quantity")
	}

	var out model.CartItem

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND book_id = ?", cartID, bookID).
			First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			newQty, err := model.MergeQuantity(item.Quantity, addQty)
			if err != nil {
				return err
			}

			res := tx.Model(&model.CartItem{}).
				Where("id = ? AND version = ?", item.ID, item.Version).
				Updates(map[string]interface{}{
					"quantity": newQty,
					"version":  item.Version + 1,
				})

			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrConflict
			}

			item.Quantity = newQty
			item.Version++
			out = item
			return nil
		}

		if !isNotFound(err) {
			return err
		}

		//無い場合は新規作成
		newItem := model.CartItem{
			CartID:   cartID,
			BookID:   bookID,
			Quantity: addQty,
			Version:  1,
		}

		if err := tx.Create(&newItem).Error; err != nil {
			// 同時に同じ書籍が入った
			if isDuplicatedKey(err) {
				return repo.ErrConflict
			}
			return err
		}

		out = newItem
		return nil
	})

	if err != nil {
		return model.CartItem{}, err
	}
	return out, nil
}

// 明細の数量を更新（上書き）
func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Updates(map[string]interface{}{
			"quantity": qty,
			"version":  gorm.Expr("version + ?", 1),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartItemGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を取得
func (r *CartItemGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error

	if isNotFound(err) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}
