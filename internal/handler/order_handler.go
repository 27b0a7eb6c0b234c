package handler

import (
	"net/http"

	"bookstore/internal/middleware"
	"bookstore/internal/usecase"
	"bookstore/internal/validator"

	"github.com/labstack/echo/v4"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type OrderHandler struct {
	uc      *usecase.OrderUsecase
	adminUC *usecase.AdminOrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase, adminUC *usecase.AdminOrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, adminUC: adminUC}
}

type OrderCreateRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, authMW ...echo.MiddlewareFunc) {
	g := e.Group("/orders", authMW...)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:orderId/items", h.listItems)
	g.GET("/:orderId/items/:itemId", h.getItem)

	// ステータス変更はADMINだけ
	g.PATCH("/:orderId", h.updateStatus, middleware.AdminRoleGuard())
}

func (h *OrderHandler) create(c echo.Context) error {
	email, ok := getEmailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := validator.ValidateShippingAddress(req.ShippingAddress); err != nil {
		return writeError(c, err)
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get(HeaderIdempotencyKey)

	out, err := h.uc.PlaceOrder(c.Request().Context(), email, usecase.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	email, ok := getEmailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listItems(c echo.Context) error {
	email, ok := getEmailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}

	if denied, err := h.guardOwner(c, email, orderID); denied {
		return err
	}

	out, err := h.uc.GetOrderItems(c.Request().Context(), email, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) getItem(c echo.Context) error {
	email, ok := getEmailFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid item id"})
	}

	if denied, err := h.guardOwner(c, email, orderID); denied {
		return err
	}

	out, err := h.uc.GetOrderItem(c.Request().Context(), email, orderID, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 他人の注文は存在の有無にかかわらず403
// denied=true ならレスポンスは書き込み済み
func (h *OrderHandler) guardOwner(c echo.Context, email string, orderID int64) (bool, error) {
	err := h.uc.AssertOwnership(c.Request().Context(), email, orderID)
	if err == nil {
		return false, nil
	}
	switch usecase.KindOf(err) {
	case usecase.KindNotFound, usecase.KindForbidden:
		return true, c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	default:
		return true, writeError(c, err)
	}
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}

	var req OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := validator.ValidateOrderStatus(req.Status); err != nil {
		return writeError(c, err)
	}

	out, err := h.adminUC.UpdateStatus(c.Request().Context(), adminID, orderID, usecase.AdminUpdateOrderStatusInput{
		Status: req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
