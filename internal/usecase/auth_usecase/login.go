package auth

import (
	"context"
	"errors"
	"strings"

	"bookstore/internal/repository"
	"bookstore/internal/usecase"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
}

// token 形（JwtAccessToken相当）
type JwtAccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handlerがJSONにして返す
type LoginOutput struct {
	User  UserDTO        `json:"user"`
	Token JwtAccessToken `json:"token"`
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginUsecase struct {
	userRepo  repository.UserRepository
	validator Validator
	verifier  PasswordVerifier
	issuer    *TokenIssuer
	clock     Clock
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	validator Validator,
	verifier PasswordVerifier,
	issuer *TokenIssuer,
	clock Clock,
) *LoginUsecase {
	if clock == nil {
		clock = usecase.SystemClock{}
	}
	return &LoginUsecase{
		userRepo:  userRepo,
		validator: validator,
		verifier:  verifier,
		issuer:    issuer,
		clock:     clock,
	}
}

// ログイン処理を実行する
// メール不一致とパスワード不一致は同じエラーにする
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	var out LoginOutput

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validator.ValidateLogin(ctx, email, in.Password); err != nil {
		return out, err
	}

	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, usecase.NewError(usecase.KindUnauthorized, "invalid credentials")
		}
		return out, usecase.WrapError(usecase.KindInternal, "db error", err)
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return out, usecase.NewError(usecase.KindForbidden, "user is inactive")
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, usecase.NewError(usecase.KindUnauthorized, "invalid credentials")
	}

	//AccessToken発行
	now := u.clock.Now()
	accessToken, accessExp, err := u.issuer.Issue(*user, now)
	if err != nil {
		return out, usecase.WrapError(usecase.KindInternal, "issue token", err)
	}

	out.User = toUserDTO(user)
	out.Token = JwtAccessToken{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(accessExp.Sub(now).Seconds()),
	}
	return out, nil
}

