// AngelaMos | 2026
// repository.go

package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/autowds/server/internal/core"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Template, error)
	List(ctx context.Context, userID int64, params ListTemplatesParams) ([]Template, int, error)
	ListFavorites(ctx context.Context, userID int64) ([]Template, error)
	IncrementFavCountIn(ctx context.Context, q core.DBTX, id int64) (bool, error)
	DecrementFavCountIn(ctx context.Context, q core.DBTX, id int64) (bool, error)
	InsertFavoriteIn(ctx context.Context, q core.DBTX, userID, templateID int64) error
	DeleteFavoriteIn(ctx context.Context, q core.DBTX, userID, templateID int64) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const templateColumns = `t.id, t.topic, t.edition, t.lang, t.fav_count,
	       t.name, t.detail, t.img, t.rule, t.data, t.params,
	       t.created, t.modified`

func (r *repository) GetByID(
	ctx context.Context,
	id int64,
) (*Template, error) {
	query := fmt.Sprintf(`
		SELECT %s, FALSE AS liked
		FROM task_templates t
		WHERE t.id = $1`, templateColumns)

	var tpl Template
	err := r.db.GetContext(ctx, &tpl, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get template: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	return &tpl, nil
}

// List annotates each row with whether the requesting user favorited it.
// userID 0 means anonymous; the annotation is FALSE everywhere then.
func (r *repository) List(
	ctx context.Context,
	userID int64,
	params ListTemplatesParams,
) ([]Template, int, error) {
	params.Normalize()

	// count query has no user-id placeholder, so its filters number from $1
	countWhere, countArgs := buildFilterWhere(params, 1)
	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM task_templates t WHERE %s", countWhere)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	where, filterArgs := buildFilterWhere(params, 2)
	argIdx := 2 + len(filterArgs)

	query := fmt.Sprintf(`
		SELECT %s,
		       (f.id IS NOT NULL) AS liked
		FROM task_templates t
		LEFT JOIN favorites f
		       ON f.template_id = t.id AND f.user_id = $1
		WHERE %s
		ORDER BY t.fav_count DESC, t.created DESC
		LIMIT $%d OFFSET $%d`,
		templateColumns, where, argIdx, argIdx+1)

	args := append([]any{userID}, filterArgs...)
	args = append(args, params.PageSize, params.Offset())

	templates := []Template{}
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}

	return templates, total, nil
}

func (r *repository) ListFavorites(
	ctx context.Context,
	userID int64,
) ([]Template, error) {
	query := fmt.Sprintf(`
		SELECT %s, TRUE AS liked
		FROM task_templates t
		JOIN favorites f ON f.template_id = t.id
		WHERE f.user_id = $1
		ORDER BY f.created DESC`, templateColumns)

	templates := []Template{}
	if err := r.db.SelectContext(ctx, &templates, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	return templates, nil
}

// IncrementFavCountIn doubles as the existence check: zero rows affected
// means no such template.
func (r *repository) IncrementFavCountIn(
	ctx context.Context,
	q core.DBTX,
	id int64,
) (bool, error) {
	query := `
		UPDATE task_templates
		SET fav_count = fav_count + 1, modified = NOW()
		WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment fav count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment fav count: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) DecrementFavCountIn(
	ctx context.Context,
	q core.DBTX,
	id int64,
) (bool, error) {
	query := `
		UPDATE task_templates
		SET fav_count = GREATEST(fav_count - 1, 0), modified = NOW()
		WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("decrement fav count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement fav count: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) InsertFavoriteIn(
	ctx context.Context,
	q core.DBTX,
	userID, templateID int64,
) error {
	query := `
		INSERT INTO favorites (user_id, template_id)
		VALUES ($1, $2)`

	if _, err := q.ExecContext(ctx, query, userID, templateID); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("insert favorite: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert favorite: %w", err)
	}

	return nil
}

func (r *repository) DeleteFavoriteIn(
	ctx context.Context,
	q core.DBTX,
	userID, templateID int64,
) (bool, error) {
	query := `DELETE FROM favorites WHERE user_id = $1 AND template_id = $2`

	result, err := q.ExecContext(ctx, query, userID, templateID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}

	return rows > 0, nil
}

func buildFilterWhere(
	params ListTemplatesParams,
	start int,
) (string, []any) {
	where := "TRUE"
	args := []any{}
	argIdx := start

	if params.Topic != "" {
		where += fmt.Sprintf(" AND t.topic = $%d", argIdx)
		args = append(args, params.Topic)
		argIdx++
	}

	if params.Lang != "" {
		where += fmt.Sprintf(" AND t.lang = $%d", argIdx)
		args = append(args, params.Lang)
		argIdx++
	}

	if params.Keyword != "" {
		where += fmt.Sprintf(
			" AND (t.name ILIKE $%d OR t.detail ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+params.Keyword+"%")
		argIdx++
	}

	return where, args
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
