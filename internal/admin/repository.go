// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/autowds/server/internal/core"
)

type EditionCount struct {
	Edition string `db:"edition" json:"edition"`
	Users   int64  `db:"users"   json:"users"`
}

type Overview struct {
	TotalUsers      int64          `json:"total_users"`
	LockedUsers     int64          `json:"locked_users"`
	UsersByEdition  []EditionCount `json:"users_by_edition"`
	ActiveTasks     int64          `json:"active_tasks"`
	ConfirmedOrders int64          `json:"confirmed_orders"`
	RevenueCents    int64          `json:"revenue_cents"`
}

type Repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Overview(ctx context.Context) (*Overview, error) {
	var out Overview

	query := `
		SELECT COUNT(*)                            AS total,
		       COUNT(*) FILTER (WHERE locked)      AS locked
		FROM account_users`

	var users struct {
		Total  int64 `db:"total"`
		Locked int64 `db:"locked"`
	}
	if err := r.db.GetContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("admin overview: users: %w", err)
	}
	out.TotalUsers = users.Total
	out.LockedUsers = users.Locked

	query = `
		SELECT edition, COUNT(*) AS users
		FROM account_users
		GROUP BY edition
		ORDER BY edition`

	out.UsersByEdition = []EditionCount{}
	if err := r.db.SelectContext(ctx, &out.UsersByEdition, query); err != nil {
		return nil, fmt.Errorf("admin overview: editions: %w", err)
	}

	query = `SELECT COUNT(*) FROM scraper_tasks WHERE NOT deleted`
	if err := r.db.GetContext(ctx, &out.ActiveTasks, query); err != nil {
		return nil, fmt.Errorf("admin overview: tasks: %w", err)
	}

	query = `
		SELECT COUNT(*)                AS confirmed,
		       COALESCE(SUM(amount), 0) AS revenue
		FROM pay_orders
		WHERE status = 'confirmed'`

	var orders struct {
		Confirmed int64 `db:"confirmed"`
		Revenue   int64 `db:"revenue"`
	}
	if err := r.db.GetContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("admin overview: orders: %w", err)
	}
	out.ConfirmedOrders = orders.Confirmed
	out.RevenueCents = orders.Revenue

	return &out, nil
}
