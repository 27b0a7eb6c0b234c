package handler

import (
	"net/http"
	"strconv"

	"bookstore/internal/middleware"
	"bookstore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse は { message: string } の形。
type SuccessResponse struct {
	Message string `json:"message"`
}

// 業務エラーの種類 → HTTPステータス
func statusOf(kind usecase.ErrorKind) int {
	switch kind {
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindInvalidArgument, usecase.KindInvalidState:
		return http.StatusBadRequest
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindConflict:
		return http.StatusConflict
	case usecase.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := usecase.AsError(err); ok && ue.Kind != usecase.KindInternal {
		return c.JSON(statusOf(ue.Kind), ErrorResponse{Error: ue.Message})
	}

	//500（原因はログだけ）
	log.Ctx(c.Request().Context()).Error().Err(err).
		Str("path", c.Path()).
		Msg("internal error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

// カート・注文の持ち主判定に使う
func getEmailFromContext(c echo.Context) (string, bool) {
	email, ok := c.Get(middleware.CtxUserEmailKey).(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
