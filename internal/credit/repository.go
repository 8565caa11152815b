// AngelaMos | 2026
// repository.go

package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/autowds/server/internal/core"
)

// Repository methods that mutate balances take an explicit core.DBTX so the
// service can compose them into a single transaction with other writes,
// registration bonuses being the main case.
type Repository interface {
	BalanceForUpdate(ctx context.Context, q core.DBTX, userID int64) (int64, error)
	SetBalance(ctx context.Context, q core.DBTX, userID, balance int64) error
	InsertLog(ctx context.Context, q core.DBTX, log *Log) error
	LogsForUser(ctx context.Context, userID int64, limit int) ([]Log, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) BalanceForUpdate(
	ctx context.Context,
	q core.DBTX,
	userID int64,
) (int64, error) {
	query := `SELECT credits FROM account_users WHERE id = $1 FOR UPDATE`

	var balance int64
	err := q.GetContext(ctx, &balance, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lock balance: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}

	return balance, nil
}

func (r *repository) SetBalance(
	ctx context.Context,
	q core.DBTX,
	userID, balance int64,
) error {
	query := `
		UPDATE account_users
		SET credits = $2, modified = NOW()
		WHERE id = $1`

	result, err := q.ExecContext(ctx, query, userID, balance)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set balance: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) InsertLog(
	ctx context.Context,
	q core.DBTX,
	log *Log,
) error {
	query := `
		INSERT INTO credit_logs
			(user_id, operation, amount, balance, description, related_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created`

	err := q.GetContext(ctx, log, query,
		log.UserID,
		log.Operation,
		log.Amount,
		log.Balance,
		log.Description,
		log.RelatedUserID,
	)
	if err != nil {
		return fmt.Errorf("insert credit log: %w", err)
	}

	return nil
}

func (r *repository) LogsForUser(
	ctx context.Context,
	userID int64,
	limit int,
) ([]Log, error) {
	query := `
		SELECT id, user_id, operation, amount, balance, description,
		       related_user_id, created
		FROM credit_logs
		WHERE user_id = $1
		ORDER BY created DESC, id DESC
		LIMIT $2`

	logs := []Log{}
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list credit logs: %w", err)
	}

	return logs, nil
}
