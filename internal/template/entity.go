// AngelaMos | 2026
// entity.go

package template

import (
	"encoding/json"
	"time"
)

type Template struct {
	ID       int64           `db:"id"        json:"id"`
	Topic    string          `db:"topic"     json:"topic"`
	Edition  string          `db:"edition"   json:"edition"`
	Lang     string          `db:"lang"      json:"lang"`
	FavCount int             `db:"fav_count" json:"fav_count"`
	Name     string          `db:"name"      json:"name"`
	Detail   string          `db:"detail"    json:"detail"`
	Img      string          `db:"img"       json:"img"`
	Rule     json.RawMessage `db:"rule"      json:"rule"`
	Data     json.RawMessage `db:"data"      json:"data"`
	Params   json.RawMessage `db:"params"    json:"params,omitempty"`
	Created  time.Time       `db:"created"   json:"created"`
	Modified time.Time       `db:"modified"  json:"modified"`

	// Liked is filled per requesting user when listing, not stored.
	Liked bool `db:"liked" json:"liked"`
}

type ListTemplatesParams struct {
	Page     int
	PageSize int
	Topic    string
	Keyword  string
	Lang     string
}

func (p *ListTemplatesParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListTemplatesParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
