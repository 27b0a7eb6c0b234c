package usecase

import (
	"errors"
	"fmt"

	repo "bookstore/internal/repository"
)

// 業務エラーの種類（handlerでHTTPステータスに変換する）
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidArgument
	KindInvalidState
	KindForbidden
	KindConflict
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Errはログ用（レスポンスには出さない）
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// usecase.Error以外は Internal
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// repositoryのエラーを業務エラーへ。
// 既にusecase.Errorならそのまま返す（WithinTxの中から戻ってきた場合）。
func fromRepo(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return WrapError(KindNotFound, notFoundMsg, err)
	case errors.Is(err, repo.ErrConflict):
		return WrapError(KindConflict, "conflict", err)
	default:
		return WrapError(KindInternal, "db error", err)
	}
}
