// AngelaMos | 2026
// wechat.go

package payment

import (
	"context"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
)

// WechatClient implements WeChat Pay APIv3: Native (QR) transactions with
// request signing, notification header verification, and AES-256-GCM
// resource decryption under the APIv3 key.
type WechatClient struct {
	http       *resty.Client
	privateKey *rsa.PrivateKey
	platform   *rsa.PublicKey
	apiV3Key   []byte
	cfg        config.WechatConfig
}

func NewWechatClient(cfg config.WechatConfig) (*WechatClient, error) {
	privateKey, err := loadRSAPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("wechat: %w", err)
	}

	platform, err := loadRSAPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("wechat: %w", err)
	}

	if len(cfg.APIv3Key) != 32 {
		return nil, fmt.Errorf("wechat: apiv3 key must be 32 bytes")
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &WechatClient{
		http:       httpClient,
		privateKey: privateKey,
		platform:   platform,
		apiV3Key:   []byte(cfg.APIv3Key),
		cfg:        cfg,
	}, nil
}

func (c *WechatClient) Name() string {
	return ProviderWechat
}

const nativePath = "/v3/pay/transactions/native"

type wechatNativeResponse struct {
	CodeURL string `json:"code_url"`
}

type wechatQueryResponse struct {
	TradeState string `json:"trade_state"`
}

func (c *WechatClient) CreateQR(ctx context.Context, o *Order) (string, error) {
	body, err := json.Marshal(map[string]any{
		"appid":        c.cfg.AppID,
		"mchid":        c.cfg.MchID,
		"description":  "AutoWDS " + o.Level,
		"out_trade_no": o.OutTradeNo,
		"notify_url":   c.cfg.NotifyURL,
		"amount": map[string]any{
			"total":    o.Amount,
			"currency": "CNY",
		},
	})
	if err != nil {
		return "", fmt.Errorf("wechat native: %w", err)
	}

	authz, err := c.authorization("POST", nativePath, string(body))
	if err != nil {
		return "", err
	}

	var out wechatNativeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", authz).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post(nativePath)
	if err != nil {
		return "", fmt.Errorf("wechat native: %w: %w", err, core.ErrProvider)
	}
	if resp.IsError() {
		return "", fmt.Errorf(
			"wechat native: http %d: %s: %w",
			resp.StatusCode(), resp.String(), core.ErrProvider,
		)
	}

	return out.CodeURL, nil
}

func (c *WechatClient) QueryOrder(
	ctx context.Context,
	outTradeNo string,
) (QueryState, error) {
	path := fmt.Sprintf(
		"/v3/pay/transactions/out-trade-no/%s?mchid=%s",
		outTradeNo, c.cfg.MchID,
	)

	authz, err := c.authorization("GET", path, "")
	if err != nil {
		return QueryUnpaid, err
	}

	var out wechatQueryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", authz).
		SetResult(&out).
		Get(path)
	if err != nil {
		return QueryUnpaid, fmt.Errorf(
			"wechat query: %w: %w", err, core.ErrProvider)
	}
	if resp.IsError() {
		return QueryUnpaid, fmt.Errorf(
			"wechat query: http %d: %w", resp.StatusCode(), core.ErrProvider)
	}

	switch out.TradeState {
	case "SUCCESS":
		return QueryPaid, nil
	case "CLOSED", "REVOKED", "PAYERROR":
		return QueryClosed, nil
	default:
		return QueryUnpaid, nil
	}
}

// authorization builds the WECHATPAY2-SHA256-RSA2048 header; the signature
// covers METHOD\nPATH\ntimestamp\nnonce\nbody\n.
func (c *WechatClient) authorization(
	method, path, body string,
) (string, error) {
	timestamp := time.Now().Unix()
	nonce := uuid.NewString()

	payload := fmt.Sprintf("%s\n%s\n%d\n%s\n%s\n",
		method, path, timestamp, nonce, body)

	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(
		rand.Reader, c.privateKey, crypto.SHA256, digest[:],
	)
	if err != nil {
		return "", fmt.Errorf("wechat sign: %w", err)
	}

	return fmt.Sprintf(
		`WECHATPAY2-SHA256-RSA2048 mchid="%s",nonce_str="%s",signature="%s",timestamp="%d",serial_no="%s"`,
		c.cfg.MchID,
		nonce,
		base64.StdEncoding.EncodeToString(sig),
		timestamp,
		c.cfg.SerialNo,
	), nil
}

// VerifyNotifySignature checks the platform signature on a webhook. The
// signed payload is Wechatpay-Timestamp\nWechatpay-Nonce\nbody\n.
func (c *WechatClient) VerifyNotifySignature(
	timestamp, nonce, signature string,
	body []byte,
) error {
	if timestamp == "" || nonce == "" || signature == "" {
		return fmt.Errorf("wechat notify: missing signature headers")
	}

	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("wechat notify: decode signature: %w", err)
	}

	payload := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, body)
	digest := sha256.Sum256([]byte(payload))

	err = rsa.VerifyPKCS1v15(c.platform, crypto.SHA256, digest[:], sigBytes)
	if err != nil {
		return fmt.Errorf("wechat notify: bad signature: %w", err)
	}

	return nil
}

type wechatNotification struct {
	EventType string `json:"event_type"`
	Resource  struct {
		Algorithm      string `json:"algorithm"`
		Ciphertext     string `json:"ciphertext"`
		Nonce          string `json:"nonce"`
		AssociatedData string `json:"associated_data"`
	} `json:"resource"`
}

type wechatTransaction struct {
	OutTradeNo string `json:"out_trade_no"`
	TradeState string `json:"trade_state"`
}

// DecodeNotification decrypts the notification resource and returns the
// transaction it describes.
func (c *WechatClient) DecodeNotification(
	body []byte,
) (*wechatTransaction, error) {
	var notif wechatNotification
	if err := json.Unmarshal(body, &notif); err != nil {
		return nil, fmt.Errorf("wechat notify: parse body: %w", err)
	}

	plaintext, err := c.decryptResource(
		notif.Resource.Ciphertext,
		notif.Resource.Nonce,
		notif.Resource.AssociatedData,
	)
	if err != nil {
		return nil, err
	}

	var txn wechatTransaction
	if err := json.Unmarshal(plaintext, &txn); err != nil {
		return nil, fmt.Errorf("wechat notify: parse resource: %w", err)
	}

	return &txn, nil
}

func (c *WechatClient) decryptResource(
	ciphertextB64, nonce, associatedData string,
) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("wechat notify: decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(c.apiV3Key)
	if err != nil {
		return nil, fmt.Errorf("wechat notify: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wechat notify: %w", err)
	}

	plaintext, err := gcm.Open(
		nil, []byte(nonce), ciphertext, []byte(associatedData),
	)
	if err != nil {
		return nil, fmt.Errorf("wechat notify: decrypt resource: %w", err)
	}

	return plaintext, nil
}
