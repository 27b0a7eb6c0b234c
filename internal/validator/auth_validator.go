package validator

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"bookstore/internal/repository"
	"bookstore/internal/usecase"
	auth "bookstore/internal/usecase/auth_usecase"
)

const minPasswordLen = 8

var emailLike = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) auth.Validator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return usecase.NewError(usecase.KindInvalidArgument, "email and password are required")
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.NewError(usecase.KindInvalidArgument, "invalid email format")
	}

	// パスワード最低文字数
	if len(password) < minPasswordLen {
		return usecase.NewError(usecase.KindInvalidArgument, "password too short")
	}

	// email重複チェック（最終的にはDBの一意制約で弾く）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.NewError(usecase.KindConflict, "email already exists")
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return usecase.WrapError(usecase.KindInternal, "db error", err)
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return usecase.NewError(usecase.KindInvalidArgument, "email and password are required")
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.NewError(usecase.KindInvalidArgument, "invalid email format")
	}

	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	if !emailLike.MatchString(s) {
		return false
	}
	_, err := mail.ParseAddress(s)
	return err == nil
}
