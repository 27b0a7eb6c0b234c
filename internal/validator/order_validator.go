package validator

import (
	"strings"

	"bookstore/internal/domain/model"
	"bookstore/internal/usecase"
)

// 境界での入力チェック。usecase側でも同じ条件を確認する。

func ValidateShippingAddress(address string) error {
	if !model.ValidShippingAddress(strings.TrimSpace(address)) {
		return usecase.NewError(usecase.KindInvalidArgument, "shipping address must be 7 to 40 characters")
	}
	return nil
}

// カート追加は1以上
func ValidateAddQuantity(q int64) error {
	if !model.ValidQuantity(q) {
		return usecase.NewError(usecase.KindInvalidArgument, "quantity must be >= 1")
	}
	return nil
}

// 数量変更は0以上（0は削除）
func ValidateUpdateQuantity(q int64) error {
	if q < 0 {
		return usecase.NewError(usecase.KindInvalidArgument, "quantity must be >= 0")
	}
	return nil
}

func ValidateOrderStatus(s string) error {
	if _, ok := model.ParseOrderStatus(strings.TrimSpace(s)); !ok {
		return usecase.NewError(usecase.KindInvalidArgument, "status must be one of PENDING, COMPLETED, DELIVERED")
	}
	return nil
}
