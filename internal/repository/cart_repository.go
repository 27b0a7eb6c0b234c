package repository

import (
	"context"

	"bookstore/internal/domain/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart model.ShoppingCart) (model.ShoppingCart, error)
	FindByUserID(ctx context.Context, userID int64) (model.ShoppingCart, error)
	// updated_atだけ更新（明細を空にしたときなど）
	Touch(ctx context.Context, cartID int64) error
}
