package repository

import (
	"context"
	"time"

	"bookstore/internal/domain/model"
)

// 一覧の件数（limit未指定時 / 上限）
const (
	DefaultAuditLogLimit = 50
	MaxAuditLogLimit     = 200
)

// 管理者の変更履歴（書籍・カテゴリの作成/更新/削除、注文ステータス変更）の絞り込み。
// nil の項目は条件にしない。新しい順で返す。
type AuditLogFilter struct {
	// 誰が
	ActorUserID *int64
	// 何を（例: UPDATE_ORDER_STATUS / "order" + 注文ID）
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64

	// created_at の範囲（両端含む）
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Limit  int
	Offset int
}

type AuditLogRepository interface {
	// 変更と同じtxで書く（ロールバックされれば履歴も残らない）
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
