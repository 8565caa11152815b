// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autowds/server/internal/core"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByOutTradeNo(ctx context.Context, outTradeNo string) (*Order, error)
	SetQRCodeURL(ctx context.Context, id int64, url string) error
	MarkPending(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	Confirm(ctx context.Context, id int64) (bool, error)
	FindStale(ctx context.Context, olderThan time.Time) ([]Order, error)
	StatsByDay(ctx context.Context, days int) ([]DayStat, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const orderColumns = `id, user_id, level, provider, status, out_trade_no,
	       amount, qrcode_url, created, confirmed`

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO pay_orders
			(user_id, level, provider, status, out_trade_no, amount, qrcode_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created`

	err := r.db.GetContext(ctx, o, query,
		o.UserID,
		o.Level,
		o.Provider,
		o.Status,
		o.OutTradeNo,
		o.Amount,
		o.QRCodeURL,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM pay_orders WHERE id = $1`, orderColumns)

	var o Order
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	return &o, nil
}

func (r *repository) GetByOutTradeNo(
	ctx context.Context,
	outTradeNo string,
) (*Order, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM pay_orders WHERE out_trade_no = $1`, orderColumns)

	var o Order
	err := r.db.GetContext(ctx, &o, query, outTradeNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order by trade no: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order by trade no: %w", err)
	}

	return &o, nil
}

func (r *repository) SetQRCodeURL(
	ctx context.Context,
	id int64,
	url string,
) error {
	query := `UPDATE pay_orders SET qrcode_url = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, url); err != nil {
		return fmt.Errorf("set qrcode url: %w", err)
	}

	return nil
}

func (r *repository) MarkPending(ctx context.Context, id int64) error {
	query := `
		UPDATE pay_orders
		SET status = $2
		WHERE id = $1 AND status = $3`

	if _, err := r.db.ExecContext(
		ctx, query, id, StatusPending, StatusCreated,
	); err != nil {
		return fmt.Errorf("mark order pending: %w", err)
	}

	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id int64) error {
	query := `
		UPDATE pay_orders
		SET status = $2
		WHERE id = $1 AND status <> $3`

	if _, err := r.db.ExecContext(
		ctx, query, id, StatusFailed, StatusConfirmed,
	); err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}

	return nil
}

// Confirm is the idempotence guard for the whole payment flow: the
// conditional update flips the order exactly once no matter how many
// webhooks or sweep passes race on it. Returns whether this call won.
func (r *repository) Confirm(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE pay_orders
		SET status = $2, confirmed = NOW()
		WHERE id = $1 AND status <> $2`

	result, err := r.db.ExecContext(ctx, query, id, StatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("confirm order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm order: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) FindStale(
	ctx context.Context,
	olderThan time.Time,
) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM pay_orders
		WHERE status IN ($1, $2) AND created < $3
		ORDER BY created`, orderColumns)

	orders := []Order{}
	err := r.db.SelectContext(
		ctx, &orders, query, StatusCreated, StatusPending, olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("find stale orders: %w", err)
	}

	return orders, nil
}

func (r *repository) StatsByDay(
	ctx context.Context,
	days int,
) ([]DayStat, error) {
	query := `
		SELECT date_trunc('day', confirmed) AS day,
		       COUNT(*) AS orders,
		       COALESCE(SUM(amount), 0) AS amount
		FROM pay_orders
		WHERE status = $1
		  AND confirmed > NOW() - make_interval(days => $2)
		GROUP BY 1
		ORDER BY 1 DESC`

	stats := []DayStat{}
	err := r.db.SelectContext(ctx, &stats, query, StatusConfirmed, days)
	if err != nil {
		return nil, fmt.Errorf("payment stats by day: %w", err)
	}

	return stats, nil
}
