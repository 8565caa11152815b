// AngelaMos | 2026
// entity.go

package task

import (
	"encoding/json"
	"time"
)

// Task holds scraping job metadata only. Rule is the extraction rule the
// client editor produces; Data carries deployment settings (cron, proxy,
// run mode) and stays NULL until the task is deployed.
type Task struct {
	ID       int64           `db:"id"       json:"id"`
	UserID   int64           `db:"user_id"  json:"user_id"`
	Name     string          `db:"name"     json:"name"`
	Rule     json.RawMessage `db:"rule"     json:"rule"`
	Data     json.RawMessage `db:"data"     json:"data,omitempty"`
	Deleted  bool            `db:"deleted"  json:"-"`
	Created  time.Time       `db:"created"  json:"created"`
	Modified time.Time       `db:"modified" json:"modified"`
}

const (
	RunModeFast    = "FAST"
	RunModeBrowser = "BROWSER"
)

// TaskData is the decoded shape of Task.Data.
type TaskData struct {
	Cron    *string `json:"cron,omitempty"`
	ProxyID *int64  `json:"proxy_id,omitempty"`
	Type    string  `json:"type,omitempty"`
}

type Stats struct {
	Total      int `db:"total"      json:"total"`
	Undeployed int `db:"undeployed" json:"undeployed"`
	Scheduled  int `db:"scheduled"  json:"scheduled"`
	Completed  int `db:"completed"  json:"completed"`
}
