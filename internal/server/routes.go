package server

import (
	"bookstore/internal/config"
	"bookstore/internal/handler"
	"bookstore/internal/middleware"
	"bookstore/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth          *handler.AuthHandler
	Book          *handler.BookHandler
	AdminBook     *handler.AdminBookHandler
	Category      *handler.CategoryHandler
	AdminCategory *handler.AdminCategoryHandler
	Cart          *handler.CartHandler
	Order         *handler.OrderHandler
	AdminOrder    *handler.AdminOrderHandler
	AdminUser     *handler.AdminUserHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	// 公開
	h.Auth.RegisterRoutes(e)
	h.Book.RegisterRoutes(e)
	h.Category.RegisterRoutes(e)

	// JWT必須 + 有効ユーザー
	authMW := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.ActiveUserGuard(userRepo),
	}
	h.Cart.RegisterRoutes(e, authMW...)
	h.Order.RegisterRoutes(e, authMW...)

	// /admin 配下は全部ADMIN限定
	admin := e.Group("/admin", append(authMW, middleware.AdminRoleGuard())...)
	h.AdminBook.RegisterRoutes(admin)
	h.AdminCategory.RegisterRoutes(admin)
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
}
