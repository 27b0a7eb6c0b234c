package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
)

type CategoryUsecase struct {
	categoryRepo repo.CategoryRepository
	bookRepo     repo.BookRepository
	tx           repo.TransactionManager
	clock        Clock
	cache        BookReadCache
}

// DI
func NewCategoryUsecase(categoryRepo repo.CategoryRepository, bookRepo repo.BookRepository, tx repo.TransactionManager, clock Clock, cache BookReadCache) *CategoryUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CategoryUsecase{categoryRepo: categoryRepo, bookRepo: bookRepo, tx: tx, clock: clock, cache: cache}
}

type CategoryOutput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryListOutput struct {
	Items []CategoryOutput `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type CategoryInput struct {
	Name        string
	Description string
}

func (u *CategoryUsecase) List(ctx context.Context, page, limit int) (CategoryListOutput, error) {
	if page < 1 {
		return CategoryListOutput{}, NewError(KindInvalidArgument, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return CategoryListOutput{}, NewError(KindInvalidArgument, "invalid limit")
	}

	list, total, err := u.categoryRepo.List(ctx, page, limit)
	if err != nil {
		return CategoryListOutput{}, fromRepo(err, "category not found")
	}
	items := make([]CategoryOutput, 0, len(list))
	for _, c := range list {
		items = append(items, toCategoryOutput(c))
	}
	return CategoryListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, categoryID int64) (CategoryOutput, error) {
	if categoryID <= 0 {
		return CategoryOutput{}, NewError(KindInvalidArgument, "invalid category id")
	}
	c, err := u.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return CategoryOutput{}, fromRepo(err, "category not found")
	}
	return toCategoryOutput(c), nil
}

// カテゴリに属する書籍。カテゴリが無ければ NotFound（空一覧にはしない）
func (u *CategoryUsecase) ListBooks(ctx context.Context, categoryID int64, page, limit int) (BookListOutput, error) {
	if categoryID <= 0 {
		return BookListOutput{}, NewError(KindInvalidArgument, "invalid category id")
	}
	q, err := bookListQuery(ListBooksInput{Page: page, Limit: limit, CategoryID: &categoryID})
	if err != nil {
		return BookListOutput{}, err
	}
	if _, err := u.categoryRepo.FindByID(ctx, categoryID); err != nil {
		return BookListOutput{}, fromRepo(err, "category not found")
	}
	return listBooks(ctx, u.bookRepo, u.categoryRepo, q)
}

func (u *CategoryUsecase) AdminCreate(ctx context.Context, adminUserID int64, in CategoryInput) (CategoryOutput, error) {
	if adminUserID <= 0 {
		return CategoryOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	c, err := categoryFromInput(in)
	if err != nil {
		return CategoryOutput{}, err
	}

	var out CategoryOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err := r.Categories().Create(ctx, c)
		if err != nil {
			return fromRepo(err, "category not found")
		}
		out = toCategoryOutput(created)
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionCreateCategory,
			ResourceType: model.AuditResourceCategory,
			ResourceID:   created.ID,
			CreatedAt:    u.clock.Now(),
		}, nil, out)
	})
	if err != nil {
		return CategoryOutput{}, err
	}
	return out, nil
}

func (u *CategoryUsecase) AdminUpdate(ctx context.Context, adminUserID int64, categoryID int64, in CategoryInput) (CategoryOutput, error) {
	if adminUserID <= 0 {
		return CategoryOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if categoryID <= 0 {
		return CategoryOutput{}, NewError(KindInvalidArgument, "invalid category id")
	}
	c, err := categoryFromInput(in)
	if err != nil {
		return CategoryOutput{}, err
	}
	c.ID = categoryID

	var out CategoryOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Categories().FindByID(ctx, categoryID)
		if err != nil {
			return fromRepo(err, "category not found")
		}
		if err := r.Categories().Update(ctx, c); err != nil {
			return fromRepo(err, "category not found")
		}
		out = CategoryOutput{ID: categoryID, Name: c.Name, Description: c.Description}
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateCategory,
			ResourceType: model.AuditResourceCategory,
			ResourceID:   categoryID,
			CreatedAt:    u.clock.Now(),
		}, toCategoryOutput(before), out)
	})
	if err != nil {
		return CategoryOutput{}, err
	}
	return out, nil
}

// 論理削除。書籍の category_ids からも消えるのでキャッシュは全部捨てる
func (u *CategoryUsecase) AdminDelete(ctx context.Context, adminUserID int64, categoryID int64) error {
	if adminUserID <= 0 {
		return NewError(KindUnauthorized, "unauthorized")
	}
	if categoryID <= 0 {
		return NewError(KindInvalidArgument, "invalid category id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Categories().FindByID(ctx, categoryID)
		if err != nil {
			return fromRepo(err, "category not found")
		}
		if err := r.Categories().SoftDelete(ctx, categoryID); err != nil {
			return fromRepo(err, "category not found")
		}
		return writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteCategory,
			ResourceType: model.AuditResourceCategory,
			ResourceID:   categoryID,
			CreatedAt:    u.clock.Now(),
		}, toCategoryOutput(before), nil)
	})
	if err != nil {
		return err
	}
	if u.cache != nil {
		u.cache.Purge()
	}
	return nil
}

func categoryFromInput(in CategoryInput) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewError(KindInvalidArgument, "name required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return model.Category{}, NewError(KindInvalidArgument, "name too long")
	}
	return model.Category{Name: name, Description: strings.TrimSpace(in.Description)}, nil
}

func toCategoryOutput(c model.Category) CategoryOutput {
	return CategoryOutput{ID: c.ID, Name: c.Name, Description: c.Description}
}
