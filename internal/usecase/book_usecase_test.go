package usecase_test

import (
	"context"
	"testing"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBookUsecase_ListBooks_InvalidSort(t *testing.T) {
	books := new(BookRepoMock)
	tx, _ := newTxFixture()
	uc := usecase.NewBookUsecase(books, new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)

	_, err := uc.ListBooks(context.Background(), usecase.ListBooksInput{Page: 1, Limit: 20, Sort: "random"})
	assertErrContains(t, err, "invalid sort")
}

func TestBookUsecase_ListBooks_FormatsPriceAndCategories(t *testing.T) {
	books := new(BookRepoMock)
	cats := new(CategoryRepoMock)
	tx, _ := newTxFixture()
	q := repo.BookListQuery{Page: 1, Limit: 20, Q: "go"}
	books.On("List", mock.Anything, q).Return([]model.Book{{ID: 1, Title: "Go", Price: price("12.5")}, {ID: 2, Title: "SQL", Price: price("3")}}, int64(2), nil)
	cats.On("CategoryIDsByBooks", mock.Anything, []int64{1, 2}).Return(map[int64][]int64{1: {4, 5}}, nil)

	uc := usecase.NewBookUsecase(books, cats, tx, fixedClock{t: testNow}, nil)
	out, err := uc.ListBooks(context.Background(), usecase.ListBooksInput{Page: 1, Limit: 20, Q: " go "})

	assert.NoError(t, err)
	if assert.Len(t, out.Items, 2) {
		assert.Equal(t, "12.50", out.Items[0].Price)
		assert.Equal(t, []int64{4, 5}, out.Items[0].CategoryIDs)
		assert.Equal(t, []int64{}, out.Items[1].CategoryIDs)
	}
}

func TestBookUsecase_ListBooks_SearchFilters(t *testing.T) {
	books := new(BookRepoMock)
	cats := new(CategoryRepoMock)
	tx, _ := newTxFixture()
	categoryID := int64(3)
	q := repo.BookListQuery{Page: 1, Limit: 10, Titles: []string{"Go"}, Authors: []string{"Alan", "Brian"}, CategoryID: &categoryID}
	books.On("List", mock.Anything, q).Return([]model.Book{}, int64(0), nil)

	uc := usecase.NewBookUsecase(books, cats, tx, fixedClock{t: testNow}, nil)
	out, err := uc.ListBooks(context.Background(), usecase.ListBooksInput{
		Page: 1, Limit: 10,
		Titles:     []string{" Go ", ""},
		Authors:    []string{"Alan", "Brian"},
		CategoryID: &categoryID,
	})

	assert.NoError(t, err)
	assert.Empty(t, out.Items)
	cats.AssertNotCalled(t, "CategoryIDsByBooks", mock.Anything, mock.Anything)
}

func TestBookUsecase_ListBooks_InvalidCategory(t *testing.T) {
	bad := int64(0)
	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), nil, fixedClock{t: testNow}, nil)

	_, err := uc.ListBooks(context.Background(), usecase.ListBooksInput{Page: 1, Limit: 10, CategoryID: &bad})
	assertKind(t, err, usecase.KindInvalidArgument)
}

func TestBookUsecase_GetBook_NotFound(t *testing.T) {
	books := new(BookRepoMock)
	tx, _ := newTxFixture()
	books.On("FindByID", mock.Anything, int64(3)).Return(model.Book{}, repo.ErrNotFound)

	uc := usecase.NewBookUsecase(books, new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)
	_, err := uc.GetBook(context.Background(), 3)

	assertKind(t, err, usecase.KindNotFound)
}

func TestBookUsecase_AdminCreateBook_RejectsSubCentPrice(t *testing.T) {
	tx, r := newTxFixture()
	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)

	_, err := uc.AdminCreateBook(context.Background(), 9, usecase.AdminBookInput{
		Title: "Go", Author: "A", ISBN: "978-4-00-000000-0", Price: price("1.005"),
	})

	assertKind(t, err, usecase.KindInvalidArgument)
	r.books.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookUsecase_AdminCreateBook_DuplicateISBN(t *testing.T) {
	tx, r := newTxFixture()
	r.books.On("Create", mock.Anything, mock.Anything).Return(model.Book{}, repo.ErrConflict)

	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)
	_, err := uc.AdminCreateBook(context.Background(), 9, usecase.AdminBookInput{
		Title: "Go", Author: "A", ISBN: "9784000000000", Price: price("10"),
	})

	assertKind(t, err, usecase.KindConflict)
	r.auditLogs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookUsecase_AdminCreateBook_WithCategories(t *testing.T) {
	tx, r := newTxFixture()
	r.categories.On("FindByIDs", mock.Anything, []int64{2, 5}).Return([]model.Category{{ID: 2}, {ID: 5}}, nil)
	r.books.On("Create", mock.Anything, mock.MatchedBy(func(b model.Book) bool {
		return b.ISBN == "9784000000000" && b.CoverImage == "https://img.example.com/go.png"
	})).Return(model.Book{ID: 11, Title: "Go", Author: "A", ISBN: "9784000000000", Price: price("10")}, nil)
	r.categories.On("SetBookCategories", mock.Anything, int64(11), []int64{2, 5}).Return(nil)
	r.auditLogs.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionCreateBook && l.ResourceID == 11 && l.BeforeJSON == "" && l.AfterJSON != ""
	})).Return(nil)

	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)
	out, err := uc.AdminCreateBook(context.Background(), 9, usecase.AdminBookInput{
		Title: "Go", Author: "A", ISBN: "978-4000000000", Price: price("10"),
		CoverImage:  " https://img.example.com/go.png ",
		CategoryIDs: []int64{5, 2, 5},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(11), out.ID)
	assert.Equal(t, []int64{2, 5}, out.CategoryIDs)
	r.categories.AssertExpectations(t)
	r.auditLogs.AssertExpectations(t)
}

func TestBookUsecase_AdminCreateBook_UnknownCategory(t *testing.T) {
	tx, r := newTxFixture()
	r.categories.On("FindByIDs", mock.Anything, []int64{2, 5}).Return([]model.Category{{ID: 2}}, nil)

	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)
	_, err := uc.AdminCreateBook(context.Background(), 9, usecase.AdminBookInput{
		Title: "Go", Author: "A", ISBN: "9784000000000", Price: price("10"),
		CategoryIDs: []int64{2, 5},
	})

	assertKind(t, err, usecase.KindNotFound)
	assertErrContains(t, err, "category not found")
	r.books.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookUsecase_AdminUpdateBook_ReplacesCategories(t *testing.T) {
	tx, r := newTxFixture()
	r.books.On("FindByID", mock.Anything, int64(7)).Return(model.Book{ID: 7, Title: "Go", Price: price("10")}, nil).Once()
	r.categories.On("FindByIDs", mock.Anything, []int64{3}).Return([]model.Category{{ID: 3}}, nil)
	r.categories.On("CategoryIDsByBooks", mock.Anything, []int64{7}).Return(map[int64][]int64{7: {1}}, nil)
	r.books.On("Update", mock.Anything, mock.MatchedBy(func(b model.Book) bool { return b.ID == 7 })).Return(nil)
	r.categories.On("SetBookCategories", mock.Anything, int64(7), []int64{3}).Return(nil)
	r.books.On("FindByID", mock.Anything, int64(7)).Return(model.Book{ID: 7, Title: "Go 2", Price: price("12.5")}, nil).Once()
	r.auditLogs.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateBook && l.BeforeJSON != "" && l.AfterJSON != ""
	})).Return(nil)

	c := &recordingCache{books: map[int64]model.Book{7: {ID: 7}}}
	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, c)
	out, err := uc.AdminUpdateBook(context.Background(), 9, 7, usecase.AdminBookInput{
		Title: "Go 2", Author: "A", ISBN: "9784000000000", Price: price("12.5"),
		CategoryIDs: []int64{3},
	})

	assert.NoError(t, err)
	assert.Equal(t, "12.50", out.Price)
	assert.Equal(t, []int64{3}, out.CategoryIDs)
	assert.Equal(t, []int64{7}, c.invalidated)
	r.categories.AssertExpectations(t)
}

func TestBookUsecase_AdminDeleteBook_WritesAudit(t *testing.T) {
	tx, r := newTxFixture()
	r.books.On("FindByID", mock.Anything, int64(7)).Return(model.Book{ID: 7, Title: "Go", Price: price("10")}, nil)
	r.books.On("SoftDelete", mock.Anything, int64(7)).Return(nil)
	r.auditLogs.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDeleteBook && l.ResourceID == 7 && l.BeforeJSON != "" && l.AfterJSON == ""
	})).Return(nil)

	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, nil)
	err := uc.AdminDeleteBook(context.Background(), 9, 7)

	assert.NoError(t, err)
	r.auditLogs.AssertExpectations(t)
}

// 呼ばれ方だけ記録する簡易キャッシュ
type recordingCache struct {
	books       map[int64]model.Book
	invalidated []int64
	purged      int
}

func (c *recordingCache) Get(ctx context.Context, id int64, load func(ctx context.Context) (model.Book, error)) (model.Book, error) {
	if b, ok := c.books[id]; ok {
		return b, nil
	}
	b, err := load(ctx)
	if err == nil {
		c.books[id] = b
	}
	return b, err
}

func (c *recordingCache) Invalidate(id int64) {
	delete(c.books, id)
	c.invalidated = append(c.invalidated, id)
}

func (c *recordingCache) Purge() {
	c.books = map[int64]model.Book{}
	c.purged++
}

func TestBookUsecase_GetBook_UsesCache(t *testing.T) {
	books := new(BookRepoMock)
	cats := new(CategoryRepoMock)
	tx, _ := newTxFixture()
	books.On("FindByID", mock.Anything, int64(5)).Return(model.Book{ID: 5, Title: "Go", Price: price("10")}, nil).Once()
	cats.On("CategoryIDsByBooks", mock.Anything, []int64{5}).Return(map[int64][]int64{5: {1}}, nil).Once()

	c := &recordingCache{books: map[int64]model.Book{}}
	uc := usecase.NewBookUsecase(books, cats, tx, fixedClock{t: testNow}, c)

	for i := 0; i < 2; i++ {
		out, err := uc.GetBook(context.Background(), 5)
		assert.NoError(t, err)
		assert.Equal(t, "10.00", out.Price)
		assert.Equal(t, []int64{1}, out.CategoryIDs)
	}
	books.AssertNumberOfCalls(t, "FindByID", 1)
	cats.AssertNumberOfCalls(t, "CategoryIDsByBooks", 1)
}

func TestBookUsecase_AdminDeleteBook_InvalidatesCache(t *testing.T) {
	tx, r := newTxFixture()
	r.books.On("FindByID", mock.Anything, int64(7)).Return(model.Book{ID: 7, Title: "Go", Price: price("10")}, nil)
	r.books.On("SoftDelete", mock.Anything, int64(7)).Return(nil)
	r.auditLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := &recordingCache{books: map[int64]model.Book{7: {ID: 7}}}
	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, c)

	assert.NoError(t, uc.AdminDeleteBook(context.Background(), 9, 7))
	assert.Equal(t, []int64{7}, c.invalidated)
}

func TestBookUsecase_AdminDeleteBook_FailureKeepsCache(t *testing.T) {
	tx, r := newTxFixture()
	r.books.On("FindByID", mock.Anything, int64(7)).Return(model.Book{}, repo.ErrNotFound)

	c := &recordingCache{books: map[int64]model.Book{}}
	uc := usecase.NewBookUsecase(new(BookRepoMock), new(CategoryRepoMock), tx, fixedClock{t: testNow}, c)

	assertKind(t, uc.AdminDeleteBook(context.Background(), 9, 7), usecase.KindNotFound)
	assert.Empty(t, c.invalidated)
}
