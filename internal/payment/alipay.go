// AngelaMos | 2026
// alipay.go

package payment

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
)

// AlipayClient talks to the open-api gateway with RSA2 (SHA256withRSA)
// request signing and verifies async notifications with the platform's
// public key.
type AlipayClient struct {
	http       *resty.Client
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	cfg        config.AlipayConfig
}

func NewAlipayClient(cfg config.AlipayConfig) (*AlipayClient, error) {
	privateKey, err := loadRSAPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("alipay: %w", err)
	}

	publicKey, err := loadRSAPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("alipay: %w", err)
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2)

	return &AlipayClient{
		http:       httpClient,
		privateKey: privateKey,
		publicKey:  publicKey,
		cfg:        cfg,
	}, nil
}

func (c *AlipayClient) Name() string {
	return ProviderAlipay
}

type alipayPrecreateResponse struct {
	Response struct {
		Code    string `json:"code"`
		Msg     string `json:"msg"`
		SubMsg  string `json:"sub_msg"`
		QRCode  string `json:"qr_code"`
		TradeNo string `json:"trade_no"`
	} `json:"alipay_trade_precreate_response"`
}

type alipayQueryResponse struct {
	Response struct {
		Code        string `json:"code"`
		Msg         string `json:"msg"`
		SubCode     string `json:"sub_code"`
		TradeStatus string `json:"trade_status"`
	} `json:"alipay_trade_query_response"`
}

func (c *AlipayClient) CreateQR(ctx context.Context, o *Order) (string, error) {
	bizContent, err := json.Marshal(map[string]string{
		"out_trade_no": o.OutTradeNo,
		"total_amount": centsToYuan(o.Amount),
		"subject":      "AutoWDS " + o.Level,
	})
	if err != nil {
		return "", fmt.Errorf("alipay precreate: %w", err)
	}

	params, err := c.signedParams("alipay.trade.precreate", string(bizContent))
	if err != nil {
		return "", err
	}

	var out alipayPrecreateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(params).
		SetResult(&out).
		Post(c.cfg.GatewayURL)
	if err != nil {
		return "", fmt.Errorf("alipay precreate: %w: %w", err, core.ErrProvider)
	}
	if resp.IsError() {
		return "", fmt.Errorf(
			"alipay precreate: http %d: %w", resp.StatusCode(), core.ErrProvider)
	}

	if out.Response.Code != "10000" {
		return "", fmt.Errorf(
			"alipay precreate: %s %s: %w",
			out.Response.Code, out.Response.SubMsg, core.ErrProvider,
		)
	}

	return out.Response.QRCode, nil
}

func (c *AlipayClient) QueryOrder(
	ctx context.Context,
	outTradeNo string,
) (QueryState, error) {
	bizContent, err := json.Marshal(map[string]string{
		"out_trade_no": outTradeNo,
	})
	if err != nil {
		return QueryUnpaid, fmt.Errorf("alipay query: %w", err)
	}

	params, err := c.signedParams("alipay.trade.query", string(bizContent))
	if err != nil {
		return QueryUnpaid, err
	}

	var out alipayQueryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(params).
		SetResult(&out).
		Post(c.cfg.GatewayURL)
	if err != nil {
		return QueryUnpaid, fmt.Errorf(
			"alipay query: %w: %w", err, core.ErrProvider)
	}
	if resp.IsError() {
		return QueryUnpaid, fmt.Errorf(
			"alipay query: http %d: %w", resp.StatusCode(), core.ErrProvider)
	}

	switch out.Response.TradeStatus {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
		return QueryPaid, nil
	case "TRADE_CLOSED":
		return QueryClosed, nil
	default:
		return QueryUnpaid, nil
	}
}

func (c *AlipayClient) signedParams(
	method, bizContent string,
) (url.Values, error) {
	params := url.Values{}
	params.Set("app_id", c.cfg.AppID)
	params.Set("method", method)
	params.Set("format", "JSON")
	params.Set("charset", "utf-8")
	params.Set("sign_type", "RSA2")
	params.Set("timestamp", time.Now().Format("2006-01-02 15:04:05"))
	params.Set("version", "1.0")
	params.Set("notify_url", c.cfg.NotifyURL)
	params.Set("biz_content", bizContent)

	sign, err := c.sign(signingString(params))
	if err != nil {
		return nil, fmt.Errorf("alipay sign: %w", err)
	}
	params.Set("sign", sign)

	return params, nil
}

func (c *AlipayClient) sign(content string) (string, error) {
	digest := sha256.Sum256([]byte(content))
	sig, err := rsa.SignPKCS1v15(
		rand.Reader, c.privateKey, crypto.SHA256, digest[:],
	)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyNotify checks the RSA2 signature on an async notification. The
// signed payload is every field except sign and sign_type, sorted by key.
func (c *AlipayClient) VerifyNotify(values url.Values) error {
	sign := values.Get("sign")
	if sign == "" {
		return fmt.Errorf("alipay notify: missing sign")
	}

	filtered := url.Values{}
	for key, vals := range values {
		if key == "sign" || key == "sign_type" || len(vals) == 0 {
			continue
		}
		filtered[key] = vals
	}

	sigBytes, err := base64.StdEncoding.DecodeString(sign)
	if err != nil {
		return fmt.Errorf("alipay notify: decode sign: %w", err)
	}

	digest := sha256.Sum256([]byte(signingString(filtered)))
	err = rsa.VerifyPKCS1v15(c.publicKey, crypto.SHA256, digest[:], sigBytes)
	if err != nil {
		return fmt.Errorf("alipay notify: bad signature: %w", err)
	}

	return nil
}

// signingString builds the canonical k=v&k=v payload with keys sorted,
// values unescaped.
func signingString(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params.Get(key))
	}

	return strings.Join(pairs, "&")
}

func centsToYuan(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
