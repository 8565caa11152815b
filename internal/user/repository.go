// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/autowds/server/internal/core"
)

type Repository interface {
	CreateIn(ctx context.Context, q core.DBTX, u *AccountUser) error
	UpdateInviteCodeIn(ctx context.Context, q core.DBTX, id int64, code string) error
	GetByID(ctx context.Context, id int64) (*AccountUser, error)
	GetByEmail(ctx context.Context, email string) (*AccountUser, error)
	GetByInviteCode(ctx context.Context, code string) (*AccountUser, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwdHash string) error
	UpdateName(ctx context.Context, id int64, name string) error
	UpgradeEdition(ctx context.Context, id int64, edition string) (bool, error)
	AdminUpdate(ctx context.Context, id int64, locked *bool, edition *string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListUsersParams) ([]AccountUser, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, email, name, passwd_hash, edition, locked, admin,
	       credits, invite_code, invited_by, last_login, created, modified`

func (r *repository) CreateIn(
	ctx context.Context,
	q core.DBTX,
	u *AccountUser,
) error {
	query := `
		INSERT INTO account_users
			(email, name, passwd_hash, edition, invite_code, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created, modified`

	err := q.GetContext(ctx, u, query,
		u.Email,
		u.Name,
		u.PasswdHash,
		u.Edition,
		u.InviteCode,
		u.InvitedBy,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) UpdateInviteCodeIn(
	ctx context.Context,
	q core.DBTX,
	id int64,
	code string,
) error {
	query := `UPDATE account_users SET invite_code = $2 WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, code)
	if err != nil {
		return fmt.Errorf("update invite code: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invite code: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update invite code: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id int64,
) (*AccountUser, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM account_users WHERE id = $1`, userColumns)

	var u AccountUser
	err := r.db.GetContext(ctx, &u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*AccountUser, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM account_users WHERE email = $1`, userColumns)

	var u AccountUser
	err := r.db.GetContext(ctx, &u, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &u, nil
}

func (r *repository) GetByInviteCode(
	ctx context.Context,
	code string,
) (*AccountUser, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM account_users WHERE invite_code = $1`, userColumns)

	var u AccountUser
	err := r.db.GetContext(ctx, &u, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by invite code: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by invite code: %w", err)
	}

	return &u, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM account_users WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) TouchLastLogin(ctx context.Context, id int64) error {
	query := `
		UPDATE account_users
		SET last_login = NOW()::text, modified = NOW()
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id int64,
	passwdHash string,
) error {
	query := `
		UPDATE account_users
		SET passwd_hash = $2, modified = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwdHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdateName(
	ctx context.Context,
	id int64,
	name string,
) error {
	query := `
		UPDATE account_users
		SET name = $2, modified = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, name)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update name: %w", core.ErrNotFound)
	}

	return nil
}

// UpgradeEdition is monotonic: editions order lexically (L0 < L1 < L2 < L3)
// so the WHERE clause makes downgrades and replays no-ops. Returns whether a
// row actually changed.
func (r *repository) UpgradeEdition(
	ctx context.Context,
	id int64,
	edition string,
) (bool, error) {
	query := `
		UPDATE account_users
		SET edition = $2, modified = NOW()
		WHERE id = $1 AND edition < $2`

	result, err := r.db.ExecContext(ctx, query, id, edition)
	if err != nil {
		return false, fmt.Errorf("upgrade edition: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upgrade edition: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) AdminUpdate(
	ctx context.Context,
	id int64,
	locked *bool,
	edition *string,
) error {
	sets := []string{"modified = NOW()"}
	args := []any{id}
	argIdx := 2

	if locked != nil {
		sets = append(sets, fmt.Sprintf("locked = $%d", argIdx))
		args = append(args, *locked)
		argIdx++
	}

	if edition != nil {
		sets = append(sets, fmt.Sprintf("edition = $%d", argIdx))
		args = append(args, *edition)
		argIdx++
	}

	query := fmt.Sprintf(
		`UPDATE account_users SET %s WHERE id = $1`,
		strings.Join(sets, ", "),
	)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("admin update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("admin update user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("admin update user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM account_users WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]AccountUser, int, error) {
	params.Normalize()

	where := "TRUE"
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		where = fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM account_users WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM account_users
		WHERE %s
		ORDER BY created DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, where, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	users := []AccountUser{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
