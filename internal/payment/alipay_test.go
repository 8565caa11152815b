// AngelaMos | 2026
// alipay_test.go

package payment

import (
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/config"
)

func newTestAlipayClient(t *testing.T) *AlipayClient {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &AlipayClient{
		privateKey: key,
		publicKey:  &key.PublicKey,
		cfg: config.AlipayConfig{
			AppID:     "2021000000000001",
			NotifyURL: "https://api.example.com/v1/pay/notify/alipay",
		},
	}
}

func TestAlipayVerifyNotify_RoundTrip(t *testing.T) {
	c := newTestAlipayClient(t)

	values := url.Values{}
	values.Set("out_trade_no", "20260831120000abcdef123456")
	values.Set("trade_status", "TRADE_SUCCESS")
	values.Set("total_amount", "29.90")
	values.Set("app_id", c.cfg.AppID)

	sign, err := c.sign(signingString(values))
	require.NoError(t, err)
	values.Set("sign", sign)
	values.Set("sign_type", "RSA2")

	assert.NoError(t, c.VerifyNotify(values))
}

func TestAlipayVerifyNotify_TamperedFieldRejected(t *testing.T) {
	c := newTestAlipayClient(t)

	values := url.Values{}
	values.Set("out_trade_no", "20260831120000abcdef123456")
	values.Set("trade_status", "TRADE_SUCCESS")
	values.Set("total_amount", "29.90")

	sign, err := c.sign(signingString(values))
	require.NoError(t, err)
	values.Set("sign", sign)
	values.Set("sign_type", "RSA2")

	values.Set("total_amount", "0.01")

	assert.Error(t, c.VerifyNotify(values))
}

func TestAlipayVerifyNotify_MissingSignRejected(t *testing.T) {
	c := newTestAlipayClient(t)

	values := url.Values{}
	values.Set("out_trade_no", "x")

	assert.Error(t, c.VerifyNotify(values))
}

func TestSigningString_SortsKeys(t *testing.T) {
	values := url.Values{}
	values.Set("zebra", "1")
	values.Set("alpha", "2")
	values.Set("middle", "3")

	assert.Equal(t, "alpha=2&middle=3&zebra=1", signingString(values))
}

func TestSignedParams_ExcludesNothingButSignsAll(t *testing.T) {
	c := newTestAlipayClient(t)

	params, err := c.signedParams("alipay.trade.precreate", `{"a":1}`)
	require.NoError(t, err)

	assert.Equal(t, "RSA2", params.Get("sign_type"))
	assert.Equal(t, "alipay.trade.precreate", params.Get("method"))
	assert.NotEmpty(t, params.Get("sign"))
	assert.Equal(t, c.cfg.NotifyURL, params.Get("notify_url"))
}

func TestCentsToYuan(t *testing.T) {
	assert.Equal(t, "9.90", centsToYuan(990))
	assert.Equal(t, "29.90", centsToYuan(2990))
	assert.Equal(t, "99.90", centsToYuan(9990))
	assert.Equal(t, "0.05", centsToYuan(5))
	assert.Equal(t, "1.00", centsToYuan(100))
}
