package auth_test

import (
	"context"
	"testing"
	"time"

	"bookstore/internal/domain/model"
	"bookstore/internal/repository"
	"bookstore/internal/usecase"
	auth "bookstore/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// mocks（auth専用）
// =====================

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *userRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

type cartRepoMock struct{ mock.Mock }

func (m *cartRepoMock) Create(ctx context.Context, cart model.ShoppingCart) (model.ShoppingCart, error) {
	args := m.Called(ctx, cart)
	c, _ := args.Get(0).(model.ShoppingCart)
	return c, args.Error(1)
}

func (m *cartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.ShoppingCart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.ShoppingCart)
	return c, args.Error(1)
}

func (m *cartRepoMock) Touch(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

// 登録で使うのはUsersとCartsだけ
type txReposMock struct {
	repository.TxRepos
	users *userRepoMock
	carts *cartRepoMock
}

func (r *txReposMock) Users() repository.UserRepository { return r.users }
func (r *txReposMock) Carts() repository.CartRepository { return r.carts }

type txManagerMock struct {
	mock.Mock
	repos repository.TxRepos
}

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.repos)
}

type validatorMock struct{ mock.Mock }

func (m *validatorMock) ValidateRegister(ctx context.Context, email string, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

func (m *validatorMock) ValidateLogin(ctx context.Context, email string, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type fakeVerifier struct{}

func (fakeVerifier) Verify(plain string, hashed string) bool { return hashed == "hashed:"+plain }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// =====================
// Register
// =====================

func TestRegisterUser_CreatesUserAndCart(t *testing.T) {
	users := new(userRepoMock)
	carts := new(cartRepoMock)
	tx := &txManagerMock{repos: &txReposMock{users: users, carts: carts}}
	tx.On("WithinTx", mock.Anything).Return(nil)
	v := new(validatorMock)
	v.On("ValidateRegister", mock.Anything, "alice@example.com", "s3cret-pass").Return(nil)

	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "alice@example.com" && u.PasswordHash == "hashed:s3cret-pass" && u.Role == model.RoleUser
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 1
	}).Return(nil)
	carts.On("Create", mock.Anything, model.ShoppingCart{UserID: 1}).Return(model.ShoppingCart{ID: 100, UserID: 1}, nil)

	uc := auth.NewRegisterUserUsecase(tx, v, fakeHasher{})
	out, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: " Alice@Example.com ", Password: "s3cret-pass"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), out.User.ID)
	assert.Equal(t, int64(100), out.CartID)
	users.AssertExpectations(t)
	carts.AssertExpectations(t)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	users := new(userRepoMock)
	carts := new(cartRepoMock)
	tx := &txManagerMock{repos: &txReposMock{users: users, carts: carts}}
	tx.On("WithinTx", mock.Anything).Return(nil)
	v := new(validatorMock)
	v.On("ValidateRegister", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict)

	uc := auth.NewRegisterUserUsecase(tx, v, fakeHasher{})
	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: "alice@example.com", Password: "s3cret-pass"})

	assert.Equal(t, usecase.KindConflict, usecase.KindOf(err))
	carts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterUser_WeakPassword(t *testing.T) {
	tx := &txManagerMock{}
	v := new(validatorMock)
	v.On("ValidateRegister", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := auth.NewRegisterUserUsecase(tx, v, fakeHasher{})
	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: "alice@example.com", Password: "password123"})

	assert.Equal(t, usecase.KindInvalidArgument, usecase.KindOf(err))
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

// =====================
// Login
// =====================

func TestLogin_IssuesTokenWithEmailClaim(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	users := new(userRepoMock)
	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{
		ID: 1, Email: "alice@example.com", PasswordHash: "hashed:s3cret-pass", Role: model.RoleUser, IsActive: true,
	}, nil)
	v := new(validatorMock)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	issuer := auth.NewTokenIssuer("test-secret", 15*time.Minute)
	uc := auth.NewLoginUsecase(users, v, fakeVerifier{}, issuer, fixedClock{t: now})

	out, err := uc.Execute(context.Background(), auth.LoginInput{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, 900, out.Token.ExpiresIn)

	tok, err := jwt.Parse(out.Token.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "1", claims["sub"])
	assert.Equal(t, "alice@example.com", claims["email"])
	assert.Equal(t, "USER", claims["role"])
}

func TestLogin_WrongPassword(t *testing.T) {
	users := new(userRepoMock)
	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{
		ID: 1, Email: "alice@example.com", PasswordHash: "hashed:right", IsActive: true,
	}, nil)
	v := new(validatorMock)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := auth.NewLoginUsecase(users, v, fakeVerifier{}, auth.NewTokenIssuer("s", time.Minute), fixedClock{t: time.Now()})
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "alice@example.com", Password: "wrong"})

	assert.Equal(t, usecase.KindUnauthorized, usecase.KindOf(err))
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	users := new(userRepoMock)
	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)
	v := new(validatorMock)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := auth.NewLoginUsecase(users, v, fakeVerifier{}, auth.NewTokenIssuer("s", time.Minute), fixedClock{t: time.Now()})
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "ghost@example.com", Password: "whatever"})

	assert.Equal(t, usecase.KindUnauthorized, usecase.KindOf(err))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLogin_InactiveUser(t *testing.T) {
	users := new(userRepoMock)
	users.On("FindByEmail", mock.Anything, "alice@example.com").Return(&model.User{
		ID: 1, Email: "alice@example.com", PasswordHash: "hashed:x", IsActive: false,
	}, nil)
	v := new(validatorMock)
	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	uc := auth.NewLoginUsecase(users, v, fakeVerifier{}, auth.NewTokenIssuer("s", time.Minute), fixedClock{t: time.Now()})
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "alice@example.com", Password: "x"})

	assert.Equal(t, usecase.KindForbidden, usecase.KindOf(err))
}

func TestBcryptHasherVerifier_RoundTrip(t *testing.T) {
	h := auth.NewBcryptPasswordHasher(4)
	hashed, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	v := auth.NewBcryptPasswordVerifier()
	assert.True(t, v.Verify("s3cret-pass", hashed))
	assert.False(t, v.Verify("other", hashed))
}
