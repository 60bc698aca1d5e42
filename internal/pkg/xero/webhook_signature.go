package xero

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// VerifyWebhookSignature checks the x-xero-signature header against the raw
// request body: base64(HMAC-SHA256(body, key)). The body must be the exact
// bytes received — any re-serialization of the parsed payload breaks the
// signature. Malformed input verifies false, it never errors.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookKey string) bool {
	sig := strings.TrimSpace(signatureHeader)
	key := strings.TrimSpace(webhookKey)
	if sig == "" || key == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}
