// AngelaMos | 2026
// entity.go

package credit

import "time"

// Operation labels for ledger entries. Amounts are signed: additions are
// positive, deductions negative. Balance is the account balance immediately
// after the entry was applied, so the log alone can reconstruct history.
const (
	OpRegister = "register"
	OpInvite   = "invite"
	OpExport   = "export"
	OpAdmin    = "admin"
)

type Log struct {
	ID            int64     `db:"id"              json:"id"`
	UserID        int64     `db:"user_id"         json:"user_id"`
	Operation     string    `db:"operation"       json:"operation"`
	Amount        int64     `db:"amount"          json:"amount"`
	Balance       int64     `db:"balance"         json:"balance"`
	Description   *string   `db:"description"     json:"description,omitempty"`
	RelatedUserID *int64    `db:"related_user_id" json:"related_user_id,omitempty"`
	Created       time.Time `db:"created"         json:"created"`
}
