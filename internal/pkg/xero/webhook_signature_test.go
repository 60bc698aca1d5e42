package xero

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func signPayload(payload []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"events":[],"firstEventSequence":0,"lastEventSequence":0}`)
	key := "webhook-signing-key"

	if !VerifyWebhookSignature(payload, signPayload(payload, key), key) {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifyWebhookSignatureSingleByteFlip(t *testing.T) {
	payload := []byte(`{"events":[{"resourceId":"abc"}]}`)
	key := "webhook-signing-key"
	sig := signPayload(payload, key)

	for i := range payload {
		tampered := append([]byte(nil), payload...)
		tampered[i] ^= 0x01
		if VerifyWebhookSignature(tampered, sig, key) {
			t.Fatalf("flipping byte %d should invalidate the signature", i)
		}
	}
}

func TestVerifyWebhookSignatureWrongSecret(t *testing.T) {
	payload := []byte(`{"events":[]}`)
	if VerifyWebhookSignature(payload, signPayload(payload, "right-key"), "wrong-key") {
		t.Fatalf("expected wrong secret to fail verification")
	}
}

func TestVerifyWebhookSignatureMalformedInput(t *testing.T) {
	if VerifyWebhookSignature([]byte("not json at all"), "!!!not-base64!!!", "key") {
		t.Fatalf("garbage input should verify false")
	}
	if VerifyWebhookSignature(nil, "", "key") {
		t.Fatalf("empty signature should verify false")
	}
	if VerifyWebhookSignature([]byte("{}"), "sig", "") {
		t.Fatalf("empty key should verify false")
	}
}
