// AngelaMos | 2026
// dto.go

package payment

type CreateOrderRequest struct {
	Level    string `json:"level"    validate:"required,oneof=L1 L2 L3"`
	Provider string `json:"provider" validate:"required,oneof=alipay wechat"`
}

type CreateOrderResponse struct {
	OrderID    int64   `json:"order_id"`
	OutTradeNo string  `json:"out_trade_no"`
	Amount     int64   `json:"amount"`
	QRCodeURL  *string `json:"qrcode_url,omitempty"`
	Status     string  `json:"status"`
}

type OrderStatusResponse struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Level   string `json:"level"`
}
