package messenger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// VerifySignature checks header ("sha256=<hex>") against the HMAC-SHA256 of
// body keyed by secret. A missing header, a bad prefix or an empty secret
// never verifies.
func VerifySignature(body []byte, header string, secret []byte) bool {
	if len(secret) == 0 {
		return false
	}
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, Sign(body, secret))
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(body []byte, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureValue formats the header value for body.
func SignatureValue(body []byte, secret []byte) string {
	return signaturePrefix + hex.EncodeToString(Sign(body, secret))
}
