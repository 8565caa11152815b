// AngelaMos | 2026
// repository.go

package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/autowds/server/internal/core"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	CreateBatch(ctx context.Context, tasks []*Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	Update(ctx context.Context, t *Task) error
	UpdateRule(ctx context.Context, id int64, rule []byte) error
	UpdateName(ctx context.Context, id int64, name string) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, userID int64, params ListTasksParams) ([]Task, int, error)
	StatsForUser(ctx context.Context, userID int64) (*Stats, error)
}

type repository struct {
	db core.DBTX
	tx core.TxRunner
}

func NewRepository(db core.DBTX, tx core.TxRunner) Repository {
	return &repository{db: db, tx: tx}
}

const taskColumns = `id, user_id, name, rule, data, deleted, created, modified`

func (r *repository) Create(ctx context.Context, t *Task) error {
	return r.createIn(ctx, r.db, t)
}

func (r *repository) createIn(ctx context.Context, q core.DBTX, t *Task) error {
	query := `
		INSERT INTO scraper_tasks (user_id, name, rule, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created, modified`

	err := q.GetContext(ctx, t, query,
		t.UserID,
		t.Name,
		t.Rule,
		t.Data,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

// CreateBatch inserts all tasks in one transaction so a failure midway
// leaves nothing behind.
func (r *repository) CreateBatch(ctx context.Context, tasks []*Task) error {
	return r.tx.InTx(ctx, func(q core.DBTX) error {
		for _, t := range tasks {
			if err := r.createIn(ctx, q, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Task, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM scraper_tasks WHERE id = $1 AND NOT deleted`,
		taskColumns)

	var t Task
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &t, nil
}

func (r *repository) Update(ctx context.Context, t *Task) error {
	query := `
		UPDATE scraper_tasks
		SET name = $2, rule = $3, data = $4, modified = NOW()
		WHERE id = $1 AND NOT deleted
		RETURNING modified`

	err := r.db.GetContext(ctx, &t.Modified, query,
		t.ID,
		t.Name,
		t.Rule,
		t.Data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update task: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *repository) UpdateRule(
	ctx context.Context,
	id int64,
	rule []byte,
) error {
	query := `
		UPDATE scraper_tasks
		SET rule = $2, modified = NOW()
		WHERE id = $1 AND NOT deleted`

	return r.execExpectingRow(ctx, "update task rule", query, id, rule)
}

func (r *repository) UpdateName(
	ctx context.Context,
	id int64,
	name string,
) error {
	query := `
		UPDATE scraper_tasks
		SET name = $2, modified = NOW()
		WHERE id = $1 AND NOT deleted`

	return r.execExpectingRow(ctx, "rename task", query, id, name)
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	query := `
		UPDATE scraper_tasks
		SET deleted = TRUE, modified = NOW()
		WHERE id = $1 AND NOT deleted`

	return r.execExpectingRow(ctx, "delete task", query, id)
}

func (r *repository) execExpectingRow(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	userID int64,
	params ListTasksParams,
) ([]Task, int, error) {
	params.Normalize()

	where := "user_id = $1 AND NOT deleted"
	args := []any{userID}
	argIdx := 2

	if params.Name != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", argIdx)
		args = append(args, escapeLike(params.Name)+"%")
		argIdx++
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM scraper_tasks WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM scraper_tasks
		WHERE %s
		ORDER BY created DESC
		LIMIT $%d OFFSET $%d`,
		taskColumns, where, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	tasks := []Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, total, nil
}

// StatsForUser buckets tasks by deployment state: no data means undeployed,
// data with a cron means scheduled, data without one means a completed
// one-off run.
func (r *repository) StatsForUser(
	ctx context.Context,
	userID int64,
) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE data IS NULL) AS undeployed,
			COUNT(*) FILTER (WHERE data ? 'cron') AS scheduled,
			COUNT(*) FILTER (WHERE data IS NOT NULL AND NOT data ? 'cron')
				AS completed
		FROM scraper_tasks
		WHERE user_id = $1 AND NOT deleted`

	var stats Stats
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}

	return &stats, nil
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
