// AngelaMos | 2026
// entity.go

package user

import "time"

const (
	EditionFree = "L0"
	EditionMax  = "L3"
)

type AccountUser struct {
	ID         int64     `db:"id"          json:"id"`
	Email      string    `db:"email"       json:"email"`
	Name       string    `db:"name"        json:"name"`
	PasswdHash string    `db:"passwd_hash" json:"-"`
	Edition    string    `db:"edition"     json:"edition"`
	Locked     bool      `db:"locked"      json:"locked"`
	Admin      bool      `db:"admin"       json:"admin"`
	Credits    int64     `db:"credits"     json:"credits"`
	InviteCode string    `db:"invite_code" json:"invite_code"`
	InvitedBy  *int64    `db:"invited_by"  json:"invited_by,omitempty"`
	LastLogin  *string   `db:"last_login"  json:"last_login,omitempty"`
	Created    time.Time `db:"created"     json:"created"`
	Modified   time.Time `db:"modified"    json:"modified"`
}

func ValidEdition(edition string) bool {
	switch edition {
	case "L0", "L1", "L2", "L3":
		return true
	}
	return false
}
