// AngelaMos | 2026
// entity.go

package payment

import "time"

const (
	ProviderAlipay = "alipay"
	ProviderWechat = "wechat"
)

// Order status machine: created -> pending -> confirmed | failed.
// confirmed is terminal and only ever reached through the CAS update in
// the repository, whether the trigger was a webhook or the sweep.
const (
	StatusCreated   = "created"
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

type Order struct {
	ID         int64      `db:"id"           json:"id"`
	UserID     int64      `db:"user_id"      json:"user_id"`
	Level      string     `db:"level"        json:"level"`
	Provider   string     `db:"provider"     json:"provider"`
	Status     string     `db:"status"       json:"status"`
	OutTradeNo string     `db:"out_trade_no" json:"out_trade_no"`
	Amount     int64      `db:"amount"       json:"amount"`
	QRCodeURL  *string    `db:"qrcode_url"   json:"qrcode_url,omitempty"`
	Created    time.Time  `db:"created"      json:"created"`
	Confirmed  *time.Time `db:"confirmed"    json:"confirmed,omitempty"`
}

type DayStat struct {
	Day    time.Time `db:"day"    json:"day"`
	Orders int       `db:"orders" json:"orders"`
	Amount int64     `db:"amount" json:"amount"`
}

func ValidProvider(p string) bool {
	return p == ProviderAlipay || p == ProviderWechat
}
