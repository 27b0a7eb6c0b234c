package handler

import (
	"errors"
	"net/http"

	"bookstore/internal/repository"

	"github.com/labstack/echo/v4"
)

// 注文の持ち主確認用（password_hashはJSONに出ない）
type AdminUserHandler struct {
	userRepo repository.UserRepository
}

func NewAdminUserHandler(userRepo repository.UserRepository) *AdminUserHandler {
	return &AdminUserHandler{userRepo: userRepo}
}

func (h *AdminUserHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/users/:id", h.get)
}

func (h *AdminUserHandler) get(c echo.Context) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
	}

	u, err := h.userRepo.FindByID(c.Request().Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, u)
}
