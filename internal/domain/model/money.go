package model

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// 表示・保存時の小数桁
const PriceScale = 2

// 加算で int64 を超える
var ErrQuantityOverflow = errors.New("quantity overflow")

// orders.total（numeric(14,2)）に入る最大値
var MaxOrderTotal = decimal.RequireFromString("999999999999.99")

// 金額計算は decimal のみ（float64 は使わない）
func LineTotal(unitPrice decimal.Decimal, qty int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(qty))
}

// 明細の合計。丸めは表示時だけ。
func SumOrderItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// 同一書籍の追加は加算（上限なし）。int64 を超える場合だけエラー
func MergeQuantity(existing, add int64) (int64, error) {
	if add > 0 && existing > math.MaxInt64-add {
		return 0, ErrQuantityOverflow
	}
	if add < 0 && existing < math.MinInt64-add {
		return 0, ErrQuantityOverflow
	}
	return existing + add, nil
}

func FitsOrderTotal(total decimal.Decimal) bool {
	return total.LessThanOrEqual(MaxOrderTotal)
}

// 保存できる数量は1以上
func ValidQuantity(q int64) bool {
	return q >= 1
}

// 小数2桁までの0以上の価格か
func ValidPrice(p decimal.Decimal) bool {
	if p.IsNegative() {
		return false
	}
	return p.Equal(p.Round(PriceScale))
}

func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(PriceScale)
}
