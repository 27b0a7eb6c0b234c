package usecase

import (
	"context"
	"errors"
	"strings"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
)

// CartUsecase は /cart の業務ロジック。
// カートはユーザー登録時に1件作られている前提（ここでは作らない）。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

type CartItemResponse struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"book_id"`
	BookTitle string `json:"book_title"`
	Quantity  int64  `json:"quantity"`
}

type CartResponse struct {
	ID     int64              `json:"id"`
	UserID int64              `json:"user_id"`
	Items  []CartItemResponse `json:"items"`
}

type AddCartInput struct {
	BookID   int64
	Quantity int64
}

// Quantity=0 は明細削除
type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカートと明細を返す。
func (u *CartUsecase) GetCart(ctx context.Context, email string) (CartResponse, error) {
	email, err := requireEmail(email)
	if err != nil {
		return CartResponse{}, err
	}

	var out CartResponse
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := loadCart(ctx, r, email)
		if err != nil {
			return err
		}
		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// AddToCart はカートに追加（同一書籍は数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, email string, in AddCartInput) (CartResponse, error) {
	email, err := requireEmail(email)
	if err != nil {
		return CartResponse{}, err
	}
	if in.BookID <= 0 {
		return CartResponse{}, NewError(KindInvalidArgument, "invalid book_id")
	}
	if !model.ValidQuantity(in.Quantity) {
		return CartResponse{}, NewError(KindInvalidArgument, "invalid quantity")
	}

	var out CartResponse
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := loadCart(ctx, r, email)
		if err != nil {
			return err
		}

		// 書籍チェック
		if _, err := r.Books().FindByID(ctx, in.BookID); err != nil {
			return fromRepo(err, "book not found")
		}

		// 既存明細があれば加算、なければ新規
		if _, err := r.CartItems().UpsertByCartAndBook(ctx, cart.ID, in.BookID, in.Quantity); err != nil {
			if errors.Is(err, model.ErrQuantityOverflow) {
				return WrapError(KindInvalidArgument, "quantity too large", err)
			}
			return fromRepo(err, "cart item not found")
		}
		if err := r.Carts().Touch(ctx, cart.ID); err != nil {
			return fromRepo(err, "shopping cart missing")
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 数量変更。他人のカートの明細は存在しない扱い。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, email string, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	email, err := requireEmail(email)
	if err != nil {
		return CartResponse{}, err
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewError(KindInvalidArgument, "invalid id")
	}
	if in.Quantity < 0 {
		return CartResponse{}, NewError(KindInvalidArgument, "invalid quantity")
	}

	var out CartResponse
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := loadCart(ctx, r, email)
		if err != nil {
			return err
		}
		item, err := findOwnedCartItem(ctx, r, cart, cartItemID)
		if err != nil {
			return err
		}

		if in.Quantity == 0 {
			err = r.CartItems().DeleteByID(ctx, item.ID)
		} else {
			err = r.CartItems().UpdateQuantity(ctx, item.ID, in.Quantity)
		}
		if err != nil {
			return fromRepo(err, "cart item not found")
		}
		if err := r.Carts().Touch(ctx, cart.ID); err != nil {
			return fromRepo(err, "shopping cart missing")
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 明細削除。無ければ NotFound。
func (u *CartUsecase) DeleteCartItem(ctx context.Context, email string, cartItemID int64) (CartResponse, error) {
	email, err := requireEmail(email)
	if err != nil {
		return CartResponse{}, err
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewError(KindInvalidArgument, "invalid id")
	}

	var out CartResponse
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := loadCart(ctx, r, email)
		if err != nil {
			return err
		}
		item, err := findOwnedCartItem(ctx, r, cart, cartItemID)
		if err != nil {
			return err
		}
		if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
			return fromRepo(err, "cart item not found")
		}
		if err := r.Carts().Touch(ctx, cart.ID); err != nil {
			return fromRepo(err, "shopping cart missing")
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

func (u *CartUsecase) GetCartItem(ctx context.Context, email string, cartItemID int64) (CartItemResponse, error) {
	email, err := requireEmail(email)
	if err != nil {
		return CartItemResponse{}, err
	}
	if cartItemID <= 0 {
		return CartItemResponse{}, NewError(KindInvalidArgument, "invalid id")
	}

	var out CartItemResponse
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := loadCart(ctx, r, email)
		if err != nil {
			return err
		}
		item, err := findOwnedCartItem(ctx, r, cart, cartItemID)
		if err != nil {
			return err
		}

		out = CartItemResponse{ID: item.ID, BookID: item.BookID, Quantity: item.Quantity}
		b, err := r.Books().FindByID(ctx, item.BookID)
		if err == nil {
			out.BookTitle = b.Title
			return nil
		}
		// 削除済みの書籍でも明細は返す
		if isRepoNotFound(err) {
			return nil
		}
		return fromRepo(err, "book not found")
	})
	if err != nil {
		return CartItemResponse{}, err
	}
	return out, nil
}

// メールアドレスからユーザーとカートを引く
func loadCart(ctx context.Context, r repo.TxRepos, email string) (model.ShoppingCart, error) {
	user, err := r.Users().FindByEmail(ctx, email)
	if err != nil {
		return model.ShoppingCart{}, fromRepo(err, "user not found")
	}
	cart, err := r.Carts().FindByUserID(ctx, user.ID)
	if isRepoNotFound(err) {
		return model.ShoppingCart{}, WrapError(KindInvalidState, "shopping cart missing", err)
	}
	if err != nil {
		return model.ShoppingCart{}, fromRepo(err, "shopping cart missing")
	}
	return cart, nil
}

func findOwnedCartItem(ctx context.Context, r repo.TxRepos, cart model.ShoppingCart, cartItemID int64) (model.CartItem, error) {
	item, err := r.CartItems().FindByID(ctx, cartItemID)
	if err != nil {
		return model.CartItem{}, fromRepo(err, "cart item not found")
	}
	if item.CartID != cart.ID {
		return model.CartItem{}, NewError(KindNotFound, "cart item not found")
	}
	return item, nil
}

func buildCartResponse(ctx context.Context, r repo.TxRepos, cart model.ShoppingCart) (CartResponse, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, fromRepo(err, "shopping cart missing")
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BookID)
	}
	books, err := r.Books().FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, fromRepo(err, "book not found")
	}
	titles := make(map[int64]string, len(books))
	for _, b := range books {
		titles[b.ID] = b.Title
	}

	out := CartResponse{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]CartItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, CartItemResponse{
			ID:        it.ID,
			BookID:    it.BookID,
			BookTitle: titles[it.BookID],
			Quantity:  it.Quantity,
		})
	}
	return out, nil
}

// 認証済みのメールアドレス（小文字）
func requireEmail(email string) (string, error) {
	e := normalizeEmail(email)
	if e == "" {
		return "", NewError(KindUnauthorized, "unauthorized")
	}
	return e, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isRepoNotFound(err error) bool {
	return err != nil && errors.Is(err, repo.ErrNotFound)
}
