// AngelaMos | 2026
// wechat_test.go

package payment

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/config"
)

func newTestWechatClient(t *testing.T) (*WechatClient, *rsa.PrivateKey) {
	t.Helper()

	platformKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	c := &WechatClient{
		platform: &platformKey.PublicKey,
		apiV3Key: []byte("0123456789abcdef0123456789abcdef"),
		cfg: config.WechatConfig{
			MchID: "1900000001",
			AppID: "wx0000000000000001",
		},
	}

	return c, platformKey
}

func signNotify(
	t *testing.T,
	key *rsa.PrivateKey,
	timestamp, nonce string,
	body []byte,
) string {
	t.Helper()

	payload := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, body)
	digest := sha256.Sum256([]byte(payload))

	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(sig)
}

func TestWechatVerifyNotifySignature_RoundTrip(t *testing.T) {
	c, platformKey := newTestWechatClient(t)

	body := []byte(`{"event_type":"TRANSACTION.SUCCESS"}`)
	sig := signNotify(t, platformKey, "1756600000", "nonce123", body)

	err := c.VerifyNotifySignature("1756600000", "nonce123", sig, body)
	assert.NoError(t, err)
}

func TestWechatVerifyNotifySignature_TamperedBodyRejected(t *testing.T) {
	c, platformKey := newTestWechatClient(t)

	body := []byte(`{"event_type":"TRANSACTION.SUCCESS"}`)
	sig := signNotify(t, platformKey, "1756600000", "nonce123", body)

	tampered := []byte(`{"event_type":"TRANSACTION.FAIL"}`)
	err := c.VerifyNotifySignature("1756600000", "nonce123", sig, tampered)
	assert.Error(t, err)
}

func TestWechatVerifyNotifySignature_MissingHeadersRejected(t *testing.T) {
	c, _ := newTestWechatClient(t)

	err := c.VerifyNotifySignature("", "", "", []byte("{}"))
	assert.Error(t, err)
}

func encryptResource(
	t *testing.T,
	key []byte,
	nonce, associatedData string,
	plaintext []byte,
) string {
	t.Helper()

	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	sealed := gcm.Seal(nil, []byte(nonce), plaintext, []byte(associatedData))
	return base64.StdEncoding.EncodeToString(sealed)
}

func TestWechatDecodeNotification_RoundTrip(t *testing.T) {
	c, _ := newTestWechatClient(t)

	txnJSON, err := json.Marshal(map[string]string{
		"out_trade_no": "20260831120000abcdef123456",
		"trade_state":  "SUCCESS",
	})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"event_type": "TRANSACTION.SUCCESS",
		"resource": map[string]string{
			"algorithm":       "AEAD_AES_256_GCM",
			"ciphertext":      encryptResource(t, c.apiV3Key, "abc123def456", "transaction", txnJSON),
			"nonce":           "abc123def456",
			"associated_data": "transaction",
		},
	})
	require.NoError(t, err)

	txn, err := c.DecodeNotification(body)
	require.NoError(t, err)
	assert.Equal(t, "20260831120000abcdef123456", txn.OutTradeNo)
	assert.Equal(t, "SUCCESS", txn.TradeState)
}

func TestWechatDecodeNotification_WrongKeyFails(t *testing.T) {
	c, _ := newTestWechatClient(t)

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	txnJSON := []byte(`{"out_trade_no":"x","trade_state":"SUCCESS"}`)

	body, err := json.Marshal(map[string]any{
		"resource": map[string]string{
			"ciphertext":      encryptResource(t, otherKey, "abc123def456", "transaction", txnJSON),
			"nonce":           "abc123def456",
			"associated_data": "transaction",
		},
	})
	require.NoError(t, err)

	_, err = c.DecodeNotification(body)
	assert.Error(t, err)
}
