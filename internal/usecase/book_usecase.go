package usecase

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/shopspring/decimal"
)

type BookUsecase struct {
	bookRepo     repo.BookRepository
	categoryRepo repo.CategoryRepository
	tx           repo.TransactionManager
	clock        Clock
	cache        BookReadCache
}

// 書籍詳細の読み取りキャッシュ。nilなら毎回DB
type BookReadCache interface {
	Get(ctx context.Context, id int64, load func(ctx context.Context) (model.Book, error)) (model.Book, error)
	Invalidate(id int64)
	Purge()
}

// DI
func NewBookUsecase(bookRepo repo.BookRepository, categoryRepo repo.CategoryRepository, tx repo.TransactionManager, clock Clock, cache BookReadCache) *BookUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &BookUsecase{bookRepo: bookRepo, categoryRepo: categoryRepo, tx: tx, clock: clock, cache: cache}
}

// GET /booksの入力DTO
type ListBooksInput struct {
	Page  int
	Limit int
	Q     string
	Sort  string

	// 完全一致（複数指定はOR）
	Titles     []string
	Authors    []string
	CategoryID *int64
}

type BookOutput struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        string  `json:"isbn"`
	Price       string  `json:"price"`
	Description string  `json:"description"`
	CoverImage  string  `json:"cover_image"`
	CategoryIDs []int64 `json:"category_ids"`
}

type BookListOutput struct {
	Items []BookOutput `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type AdminBookInput struct {
	Title       string
	Author      string
	ISBN        string
	Price       decimal.Decimal
	Description string
	CoverImage  string
	CategoryIDs []int64
}

func (u *BookUsecase) ListBooks(ctx context.Context, in ListBooksInput) (BookListOutput, error) {
	q, err := bookListQuery(in)
	if err != nil {
		return BookListOutput{}, err
	}
	return listBooks(ctx, u.bookRepo, u.categoryRepo, q)
}

func (u *BookUsecase) GetBook(ctx context.Context, bookID int64) (BookOutput, error) {
	if bookID <= 0 {
		return BookOutput{}, NewError(KindInvalidArgument, "invalid book id")
	}
	load := func(ctx context.Context) (model.Book, error) {
		b, err := u.bookRepo.FindByID(ctx, bookID)
		if err != nil {
			return model.Book{}, err
		}
		books := []model.Book{b}
		if err := attachCategoryIDs(ctx, u.categoryRepo, books); err != nil {
			return model.Book{}, err
		}
		return books[0], nil
	}

	var (
		b   model.Book
		err error
	)
	if u.cache != nil {
		b, err = u.cache.Get(ctx, bookID, load)
	} else {
		b, err = load(ctx)
	}
	if err != nil {
		return BookOutput{}, fromRepo(err, "book not found")
	}
	return toBookOutput(b), nil
}

func (u *BookUsecase) invalidate(bookID int64) {
	if u.cache != nil {
		u.cache.Invalidate(bookID)
	}
}

func (u *BookUsecase) AdminCreateBook(ctx context.Context, adminUserID int64, in AdminBookInput) (BookOutput, error) {
	if adminUserID <= 0 {
		return BookOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	b, err := bookFromInput(in)
	if err != nil {
		return BookOutput{}, err
	}

	var out BookOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := requireCategories(ctx, r.Categories(), b.CategoryIDs); err != nil {
			return err
		}
		created, err := r.Books().Create(ctx, b)
		if err != nil {
			return fromRepo(err, "book not found")
		}
		if len(b.CategoryIDs) > 0 {
			if err := r.Categories().SetBookCategories(ctx, created.ID, b.CategoryIDs); err != nil {
				return fromRepo(err, "book not found")
			}
		}
		created.CategoryIDs = b.CategoryIDs

		out = toBookOutput(created)
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionCreateBook,
			ResourceType: model.AuditResourceBook,
			ResourceID:   created.ID,
			CreatedAt:    u.clock.Now(),
		}, nil, out)
	})
	if err != nil {
		return BookOutput{}, err
	}
	return out, nil
}

// 更新前後を監査ログに残す。カテゴリは指定したもので置き換え
func (u *BookUsecase) AdminUpdateBook(ctx context.Context, adminUserID int64, bookID int64, in AdminBookInput) (BookOutput, error) {
	if adminUserID <= 0 {
		return BookOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if bookID <= 0 {
		return BookOutput{}, NewError(KindInvalidArgument, "invalid book id")
	}
	b, err := bookFromInput(in)
	if err != nil {
		return BookOutput{}, err
	}
	b.ID = bookID

	var out BookOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Books().FindByID(ctx, bookID)
		if err != nil {
			return fromRepo(err, "book not found")
		}
		if err := requireCategories(ctx, r.Categories(), b.CategoryIDs); err != nil {
			return err
		}
		beforeBooks := []model.Book{before}
		if err := attachCategoryIDs(ctx, r.Categories(), beforeBooks); err != nil {
			return fromRepo(err, "book not found")
		}

		if err := r.Books().Update(ctx, b); err != nil {
			return fromRepo(err, "book not found")
		}
		if err := r.Categories().SetBookCategories(ctx, bookID, b.CategoryIDs); err != nil {
			return fromRepo(err, "book not found")
		}
		after, err := r.Books().FindByID(ctx, bookID)
		if err != nil {
			return fromRepo(err, "book not found")
		}
		after.CategoryIDs = b.CategoryIDs

		out = toBookOutput(after)
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateBook,
			ResourceType: model.AuditResourceBook,
			ResourceID:   bookID,
			CreatedAt:    u.clock.Now(),
		}, toBookOutput(beforeBooks[0]), out)
	})
	if err != nil {
		return BookOutput{}, err
	}
	u.invalidate(bookID)
	return out, nil
}

// 論理削除。カートに残った明細は参照切れになる（注文確定時に NotFound）。
func (u *BookUsecase) AdminDeleteBook(ctx context.Context, adminUserID int64, bookID int64) error {
	if adminUserID <= 0 {
		return NewError(KindUnauthorized, "unauthorized")
	}
	if bookID <= 0 {
		return NewError(KindInvalidArgument, "invalid book id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Books().FindByID(ctx, bookID)
		if err != nil {
			return fromRepo(err, "book not found")
		}
		if err := r.Books().SoftDelete(ctx, bookID); err != nil {
			return fromRepo(err, "book not found")
		}
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteBook,
			ResourceType: model.AuditResourceBook,
			ResourceID:   bookID,
			CreatedAt:    u.clock.Now(),
		}, toBookOutput(before), nil)
	})
	if err != nil {
		return err
	}
	u.invalidate(bookID)
	return nil
}

func bookListQuery(in ListBooksInput) (repo.BookListQuery, error) {
	if in.Page < 1 {
		return repo.BookListQuery{}, NewError(KindInvalidArgument, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return repo.BookListQuery{}, NewError(KindInvalidArgument, "invalid limit")
	}
	if len(in.Q) > 100 {
		return repo.BookListQuery{}, NewError(KindInvalidArgument, "q too long")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "title":
	default:
		return repo.BookListQuery{}, NewError(KindInvalidArgument, "invalid sort")
	}
	if in.CategoryID != nil && *in.CategoryID <= 0 {
		return repo.BookListQuery{}, NewError(KindInvalidArgument, "invalid category id")
	}
	if len(in.Titles) > 20 || len(in.Authors) > 20 {
		return repo.BookListQuery{}, NewError(KindInvalidArgument, "too many search values")
	}

	return repo.BookListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		Sort:       in.Sort,
		Titles:     nonEmpty(in.Titles),
		Authors:    nonEmpty(in.Authors),
		CategoryID: in.CategoryID,
	}, nil
}

func listBooks(ctx context.Context, books repo.BookRepository, cats repo.CategoryRepository, q repo.BookListQuery) (BookListOutput, error) {
	list, total, err := books.List(ctx, q)
	if err != nil {
		return BookListOutput{}, fromRepo(err, "book not found")
	}
	if err := attachCategoryIDs(ctx, cats, list); err != nil {
		return BookListOutput{}, fromRepo(err, "book not found")
	}

	items := make([]BookOutput, 0, len(list))
	for _, b := range list {
		items = append(items, toBookOutput(b))
	}
	return BookListOutput{
		Items: items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// books[i].CategoryIDs を埋める
func attachCategoryIDs(ctx context.Context, cats repo.CategoryRepository, books []model.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	byBook, err := cats.CategoryIDsByBooks(ctx, ids)
	if err != nil {
		return err
	}
	for i := range books {
		books[i].CategoryIDs = byBook[books[i].ID]
	}
	return nil
}

// 指定カテゴリが全部存在するか
func requireCategories(ctx context.Context, cats repo.CategoryRepository, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := cats.FindByIDs(ctx, ids)
	if err != nil {
		return fromRepo(err, "category not found")
	}
	exists := make(map[int64]struct{}, len(found))
	for _, c := range found {
		exists[c.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := exists[id]; !ok {
			return NewError(KindNotFound, "category not found")
		}
	}
	return nil
}

// 空白だけの値は捨てる。全部空なら nil
func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func bookFromInput(in AdminBookInput) (model.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > 255 {
		return model.Book{}, NewError(KindInvalidArgument, "title required")
	}
	author := strings.TrimSpace(in.Author)
	if author == "" || utf8.RuneCountInString(author) > 255 {
		return model.Book{}, NewError(KindInvalidArgument, "author required")
	}
	isbn := strings.ReplaceAll(strings.TrimSpace(in.ISBN), "-", "")
	if len(isbn) != 10 && len(isbn) != 13 {
		return model.Book{}, NewError(KindInvalidArgument, "invalid isbn")
	}
	if !model.ValidPrice(in.Price) {
		return model.Book{}, NewError(KindInvalidArgument, "price must be >= 0 with at most 2 decimals")
	}
	cover := strings.TrimSpace(in.CoverImage)
	if len(cover) > 512 {
		return model.Book{}, NewError(KindInvalidArgument, "cover image too long")
	}
	for _, id := range in.CategoryIDs {
		if id <= 0 {
			return model.Book{}, NewError(KindInvalidArgument, "invalid category id")
		}
	}
	return model.Book{
		Title:       title,
		Author:      author,
		ISBN:        isbn,
		Price:       in.Price,
		Description: in.Description,
		CoverImage:  cover,
		CategoryIDs: dedupeIDs(in.CategoryIDs),
	}, nil
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toBookOutput(b model.Book) BookOutput {
	categoryIDs := b.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []int64{}
	}
	return BookOutput{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Price:       model.FormatPrice(b.Price),
		Description: b.Description,
		CoverImage:  b.CoverImage,
		CategoryIDs: categoryIDs,
	}
}
