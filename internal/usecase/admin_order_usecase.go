package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"

	"github.com/rs/zerolog/log"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock) *AdminOrderUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AdminOrderUsecase{tx: tx, clock: clock}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type orderStatusSnapshot struct {
	Status model.OrderStatus `json:"status"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewError(KindInvalidArgument, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewError(KindInvalidArgument, "invalid limit")
	}
	f.Status = strings.TrimSpace(f.Status)
	if f.Status != "" {
		if _, ok := model.ParseOrderStatus(f.Status); !ok {
			return AdminOrderListOutput{}, NewError(KindInvalidArgument, "invalid status")
		}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AdminOrderListOutput{}, NewError(KindInvalidArgument, "from must be before to")
	}

	out := AdminOrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return fromRepo(err, "order not found")
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return fromRepo(err, "order not found")
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// ステータス更新。遷移の制限はしない（どの値からでも列挙値ならOK）。
// 監査ログも同じトランザクションで書く。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorUserID <= 0 {
		return OrderOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewError(KindInvalidArgument, "invalid order id")
	}
	newStatus, ok := model.ParseOrderStatus(strings.TrimSpace(in.Status))
	if !ok {
		return OrderOutput{}, NewError(KindInvalidArgument, "invalid status")
	}

	var (
		out    OrderOutput
		before model.OrderStatus
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order not found")
		}
		before = o.Status

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return fromRepo(err, "order not found")
		}
		o.Status = newStatus

		if err := writeAudit(ctx, r, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			CreatedAt:    u.clock.Now(),
		}, orderStatusSnapshot{Status: before}, orderStatusSnapshot{Status: newStatus}); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order not found")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	log.Ctx(ctx).Info().
		Int64("order_id", orderID).
		Int64("actor_user_id", actorUserID).
		Str("from", string(before)).
		Str("to", string(newStatus)).
		Msg("order status updated")
	return out, nil
}

type ListAuditLogsInput struct {
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// 監査ログ一覧
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit == 0 {
		in.Limit = repo.DefaultAuditLogLimit
	}
	if in.Limit < 1 || in.Limit > repo.MaxAuditLogLimit {
		return []model.AuditLog{}, NewError(KindInvalidArgument, "invalid limit")
	}
	if in.Offset < 0 {
		return []model.AuditLog{}, NewError(KindInvalidArgument, "invalid offset")
	}

	f := repo.AuditLogFilter{
		ResourceID:  in.ResourceID,
		CreatedFrom: in.From,
		CreatedTo:   in.To,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if a := strings.TrimSpace(in.Action); a != "" {
		act := model.AuditAction(a)
		f.Action = &act
	}
	if rt := strings.TrimSpace(in.ResourceType); rt != "" {
		res := model.AuditResourceType(rt)
		f.ResourceType = &res
	}

	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(ctx, f)
		return fromRepo(err, "audit log not found")
	})
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

// before/after をJSONにして監査ログを保存
func writeAudit(ctx context.Context, r repo.TxRepos, entry model.AuditLog, before any, after any) error {
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return WrapError(KindInternal, "audit encode", err)
		}
		entry.BeforeJSON = string(b)
	}
	if after != nil {
		a, err := json.Marshal(after)
		if err != nil {
			return WrapError(KindInternal, "audit encode", err)
		}
		entry.AfterJSON = string(a)
	}
	if err := r.AuditLogs().Create(ctx, entry); err != nil {
		return fromRepo(err, "audit log not found")
	}
	return nil
}
