package handler

import (
	"net/http"
	"strconv"

	"bookstore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /books の公開API
type BookHandler struct {
	uc *usecase.BookUsecase
}

// DI
func NewBookHandler(uc *usecase.BookUsecase) *BookHandler {
	return &BookHandler{uc: uc}
}

// 公開書籍のルートを登録
func (h *BookHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/books", h.list)
	e.GET("/books/search", h.list)
	e.GET("/books/:id", h.detail)
}

// title / author は複数指定可（?title=a&title=b）
func (h *BookHandler) list(c echo.Context) error {
	page, limit, ok := parsePaging(c)
	if !ok {
		return nil
	}

	var categoryID *int64
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid category id"})
		}
		categoryID = &id
	}

	params := c.QueryParams()
	out, err := h.uc.ListBooks(c.Request().Context(), usecase.ListBooksInput{
		Page:       page,
		Limit:      limit,
		Q:          c.QueryParam("q"),
		Sort:       c.QueryParam("sort"),
		Titles:     params["title"],
		Authors:    params["author"],
		CategoryID: categoryID,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// page（default 1）/ limit（default 20）。不正なら400を書いて ok=false
func parsePaging(c echo.Context) (page, limit int, ok bool) {
	page = 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
			return 0, 0, false
		}
		page = p
	}

	limit = 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

func (h *BookHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	b, err := h.uc.GetBook(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, b)
}
