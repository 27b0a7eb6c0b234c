package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const maxIdempotencyKeyLen = 255

// 現在の時間
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// 注文確定イベント（order.created）
type OrderCreatedEvent struct {
	OrderID         int64            `json:"order_id"`
	UserID          int64            `json:"user_id"`
	Email           string           `json:"email"`
	ShippingAddress string           `json:"shipping_address"`
	Total           string           `json:"total"`
	Items           []OrderItemEvent `json:"items"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

type OrderItemEvent struct {
	BookID    int64  `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// コミット後に呼ぶ。失敗しても注文は取り消さない。
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, ev OrderCreatedEvent) error
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	publisher OrderEventPublisher
	clock     Clock
}

func NewOrderUsecase(tx repo.TransactionManager, publisher OrderEventPublisher, clock Clock) *OrderUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &OrderUsecase{tx: tx, publisher: publisher, clock: clock}
}

type PlaceOrderInput struct {
	ShippingAddress string
	// 空なら毎回新しい注文
	IdempotencyKey string
}

type OrderItemOutput struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	BookID    int64  `json:"book_id"`
	BookTitle string `json:"book_title"`
	Quantity  int64  `json:"quantity"`
	Price     string `json:"price"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	OrderDate       time.Time         `json:"order_date"`
	ShippingAddress string            `json:"shipping_address"`
	Total           string            `json:"total"`
	Items           []OrderItemOutput `json:"items"`
}

// PlaceOrder はカートの中身を注文に変換する。
// 注文作成・明細作成・カート明細削除・合計更新は1トランザクション。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, email string, in PlaceOrderInput) (OrderOutput, error) {
	email, err := requireEmail(email)
	if err != nil {
		return OrderOutput{}, err
	}
	address := strings.TrimSpace(in.ShippingAddress)
	if !model.ValidShippingAddress(address) {
		return OrderOutput{}, NewError(KindInvalidArgument, "shipping address must be 7 to 40 characters")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return OrderOutput{}, NewError(KindInvalidArgument, "invalid idempotency key")
	}

	var (
		out      OrderOutput
		ev       OrderCreatedEvent
		replayed bool
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			return fromRepo(err, "user not found")
		}

		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, user.ID, key)
			if err != nil {
				return fromRepo(err, "order not found")
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return fromRepo(err, "order not found")
				}
				out = toOrderOutput(existing, items)
				replayed = true
				return nil
			}
		}

		cart, err := r.Carts().FindByUserID(ctx, user.ID)
		if isRepoNotFound(err) {
			return WrapError(KindInvalidState, "shopping cart missing", err)
		}
		if err != nil {
			return fromRepo(err, "shopping cart missing")
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return fromRepo(err, "shopping cart missing")
		}
		if len(cartItems) == 0 {
			return NewError(KindInvalidState, "cart is empty")
		}

		// 注文ヘッダ（合計は最後に更新）
		order := model.Order{
			UserID:          user.ID,
			Status:          model.OrderStatusPending,
			OrderDate:       u.clock.Now(),
			ShippingAddress: address,
			Total:           decimal.Zero,
		}
		if key != "" {
			k := key
			order.IdempotencyKey = &k
		}
		order, err = r.Orders().Create(ctx, order)
		if err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return WrapError(KindConflict, "order with the same idempotency key is being created", err)
			}
			return fromRepo(err, "order not found")
		}

		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total := decimal.Zero
		for _, ci := range cartItems {
			// 書籍が無ければ全体をロールバック
			b, err := r.Books().FindByID(ctx, ci.BookID)
			if err != nil {
				return fromRepo(err, "book not found")
			}

			// 価格は注文時点のスナップショット
			item, err := r.OrderItems().Create(ctx, model.OrderItem{
				OrderID:           order.ID,
				BookID:            b.ID,
				BookTitleSnapshot: b.Title,
				Quantity:          ci.Quantity,
				Price:             b.Price,
			})
			if err != nil {
				return fromRepo(err, "order not found")
			}
			orderItems = append(orderItems, item)
			total = total.Add(item.LineTotal())

			if err := r.CartItems().DeleteByID(ctx, ci.ID); err != nil {
				return fromRepo(err, "cart item not found")
			}
		}

		if !model.FitsOrderTotal(total) {
			return NewError(KindInvalidState, "order total too large")
		}

		// カート自体は残す（明細だけ空）
		if err := r.Carts().Touch(ctx, cart.ID); err != nil {
			return fromRepo(err, "shopping cart missing")
		}
		if err := r.Orders().UpdateTotal(ctx, order.ID, total); err != nil {
			return fromRepo(err, "order not found")
		}
		order.Total = total

		out = toOrderOutput(order, orderItems)
		ev = toOrderCreatedEvent(order, user.Email, orderItems)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if replayed {
		return out, nil
	}

	log.Ctx(ctx).Info().
		Int64("order_id", out.ID).
		Int64("user_id", out.UserID).
		Str("total", out.Total).
		Int("items", len(out.Items)).
		Msg("order placed")

	if u.publisher != nil {
		if err := u.publisher.PublishOrderCreated(ctx, ev); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int64("order_id", out.ID).Msg("publish order.created failed")
		}
	}
	return out, nil
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, email string) ([]OrderOutput, error) {
	email, err := requireEmail(email)
	if err != nil {
		return []OrderOutput{}, err
	}

	var outs []OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			return fromRepo(err, "user not found")
		}
		orders, err := r.Orders().ListByUserID(ctx, user.ID)
		if err != nil {
			return fromRepo(err, "order not found")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return fromRepo(err, "order not found")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// AssertOwnership は注文の持ち主かどうか確認する。
// 注文が無ければ NotFound、持ち主でなければ Forbidden。
func (u *OrderUsecase) AssertOwnership(ctx context.Context, email string, orderID int64) error {
	email, err := requireEmail(email)
	if err != nil {
		return err
	}
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := guardOrderOwner(ctx, r, email, orderID)
		return err
	})
}

func (u *OrderUsecase) GetOrderItems(ctx context.Context, email string, orderID int64) ([]OrderItemOutput, error) {
	email, err := requireEmail(email)
	if err != nil {
		return []OrderItemOutput{}, err
	}
	if orderID <= 0 {
		return []OrderItemOutput{}, NewError(KindInvalidArgument, "invalid order id")
	}

	var outs []OrderItemOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := guardOrderOwner(ctx, r, email, orderID); err != nil {
			return err
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order not found")
		}
		outs = toOrderItemOutputs(items)
		return nil
	})
	if err != nil {
		return []OrderItemOutput{}, err
	}
	return outs, nil
}

// 明細が別の注文のものなら NotFound
func (u *OrderUsecase) GetOrderItem(ctx context.Context, email string, orderID int64, itemID int64) (OrderItemOutput, error) {
	email, err := requireEmail(email)
	if err != nil {
		return OrderItemOutput{}, err
	}
	if orderID <= 0 || itemID <= 0 {
		return OrderItemOutput{}, NewError(KindInvalidArgument, "invalid id")
	}

	var out OrderItemOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := guardOrderOwner(ctx, r, email, orderID); err != nil {
			return err
		}
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if err != nil {
			return fromRepo(err, "order item not found")
		}
		if item.OrderID != orderID {
			return NewError(KindNotFound, "order item not found")
		}
		out = toOrderItemOutput(item)
		return nil
	})
	if err != nil {
		return OrderItemOutput{}, err
	}
	return out, nil
}

// 注文の持ち主のメールアドレスと呼び出し元を比べる
func guardOrderOwner(ctx context.Context, r repo.TxRepos, email string, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, fromRepo(err, "order not found")
	}
	owner, err := r.Users().FindByID(ctx, o.UserID)
	if isRepoNotFound(err) {
		return model.Order{}, NewError(KindForbidden, "forbidden")
	}
	if err != nil {
		return model.Order{}, fromRepo(err, "user not found")
	}
	if normalizeEmail(owner.Email) != email {
		return model.Order{}, NewError(KindForbidden, "forbidden")
	}
	return o, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	return OrderOutput{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		OrderDate:       o.OrderDate,
		ShippingAddress: o.ShippingAddress,
		Total:           model.FormatPrice(o.Total),
		Items:           toOrderItemOutputs(items),
	}
}

func toOrderItemOutputs(items []model.OrderItem) []OrderItemOutput {
	outs := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outs = append(outs, toOrderItemOutput(it))
	}
	return outs
}

func toOrderItemOutput(it model.OrderItem) OrderItemOutput {
	return OrderItemOutput{
		ID:        it.ID,
		OrderID:   it.OrderID,
		BookID:    it.BookID,
		BookTitle: it.BookTitleSnapshot,
		Quantity:  it.Quantity,
		Price:     model.FormatPrice(it.Price),
	}
}

func toOrderCreatedEvent(o model.Order, email string, items []model.OrderItem) OrderCreatedEvent {
	evItems := make([]OrderItemEvent, 0, len(items))
	for _, it := range items {
		evItems = append(evItems, OrderItemEvent{
			BookID:    it.BookID,
			Title:     it.BookTitleSnapshot,
			Quantity:  it.Quantity,
			UnitPrice: model.FormatPrice(it.Price),
			LineTotal: model.FormatPrice(it.LineTotal()),
		})
	}
	return OrderCreatedEvent{
		OrderID:         o.ID,
		UserID:          o.UserID,
		Email:           email,
		ShippingAddress: o.ShippingAddress,
		Total:           model.FormatPrice(o.Total),
		Items:           evItems,
		OccurredAt:      o.OrderDate,
	}
}
