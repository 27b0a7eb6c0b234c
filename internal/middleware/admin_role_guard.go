package middleware

import (
	"net/http"

	"bookstore/internal/domain/model"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// 書籍・カテゴリ・注文の管理APIはADMINだけ
func AdminRoleGuard() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}

// AuthJWT の後に置く。roleが無ければ401、許可リストに無ければ403
func RequireRole(allowed ...model.Role) echo.MiddlewareFunc {
	allow := make(map[model.Role]struct{}, len(allowed))
	for _, r := range allowed {
		allow[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if _, ok := allow[model.Role(role)]; !ok {
				log.Ctx(c.Request().Context()).Info().
					Str("role", role).
					Str("path", c.Path()).
					Msg("role denied")
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
			return next(c)
		}
	}
}
