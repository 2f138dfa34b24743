package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyWebhookSignature checks the provider's HMAC-SHA256 signature over the
// raw payload. An empty signature or secret never verifies.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// SignWebhookPayload produces the hex signature a provider would send.
// Used by tests and the local webhook simulator.
func SignWebhookPayload(payload []byte, webhookSecret string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
