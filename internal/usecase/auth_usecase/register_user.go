package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
	"bookstore/internal/usecase"

	"golang.org/x/crypto/bcrypt"
)

// 会員登録の入力
type RegisterUserInput struct {
	Email    string
	Password string
}

// 会員登録の出力
type RegisterUserOutput struct {
	User   UserDTO `json:"user"`
	CartID int64   `json:"cart_id"`
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// 入力チェックの約束（実装は validator パッケージ）
type Validator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// RegisterUserUsecaseは会員登録の処理。
// ユーザーとカートは同じトランザクションで作る。
type RegisterUserUsecase struct {
	tx        repository.TransactionManager
	validator Validator
	hasher    PasswordHasher
}

// DI
func NewRegisterUserUsecase(
	tx repository.TransactionManager,
	validator Validator,
	hasher PasswordHasher,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		tx:        tx,
		validator: validator,
		hasher:    hasher,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := u.validator.ValidateRegister(ctx, email, in.Password); err != nil {
		return out, err
	}

	// よくある弱いパスワードの拒否
	if isWeakPassword(in.Password) {
		return out, usecase.NewError(usecase.KindInvalidArgument, "weak password")
	}

	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, usecase.WrapError(usecase.KindInternal, "hash password", err)
	}

	err = u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		user := &model.User{
			Email:        email,
			PasswordHash: hashed,         // ハッシュを保存（平文は保存しない）
			Role:         model.RoleUser, // 初期はUSER
			IsActive:     true,
		}
		if err := r.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return usecase.WrapError(usecase.KindConflict, "email already exists", err)
			}
			return usecase.WrapError(usecase.KindInternal, "db error", err)
		}

		// 1ユーザーにカート1件
		cart, err := r.Carts().Create(ctx, model.ShoppingCart{UserID: user.ID})
		if err != nil {
			return usecase.WrapError(usecase.KindInternal, "db error", err)
		}

		out.User = toUserDTO(user)
		out.CartID = cart.ID
		return nil
	})
	if err != nil {
		return RegisterUserOutput{}, err
	}
	return out, nil
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

// パスワードのよくある弱いパスワード
func isWeakPassword(password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(password))

	weak := map[string]struct{}{
		"password":     {},
		"password123":  {},
		"123456789012": {},
		"1234567890":   {},
		"12345678":     {},
		"qwertyuiop":   {},
		"letmein123":   {},
		"admin123":     {},
	}

	_, ok := weak[normalized]
	return ok
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

// bcryptでハッシュ化
func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

// 平文(plain)をbcryptで比較
func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
