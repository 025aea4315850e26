package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	EncodingHex    = "hex"
	EncodingBase64 = "base64"

	sha256Prefix = "sha256="
)

// HMACSignature returns the lowercase hex HMAC-SHA256 of the raw payload.
func HMACSignature(secret string, payload []byte) string {
	return hex.EncodeToString(computeHMAC(secret, payload))
}

// VerifyHMAC reports whether signature is the hex HMAC-SHA256 of payload.
// Hex digits compare case-insensitively and a "sha256=" prefix is accepted.
func VerifyHMAC(secret string, payload []byte, signature string) bool {
	return HMACVerifier{Secret: secret}.Valid(payload, signature)
}

type HMACVerifier struct {
	Secret string
	// Prefix is stripped from the signature before comparison.
	Prefix   string
	Encoding string
}

func (v HMACVerifier) Valid(payload []byte, signature string) bool {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return false
	}
	signature = strings.TrimSpace(signature)
	if prefix := strings.TrimSpace(v.Prefix); prefix != "" && hasPrefixFold(signature, prefix) {
		signature = strings.TrimSpace(signature[len(prefix):])
	}
	if signature == "" {
		return false
	}
	expected := computeHMAC(secret, payload)

	switch strings.ToLower(strings.TrimSpace(v.Encoding)) {
	case EncodingBase64:
		decoded, err := base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare(decoded, expected) == 1
	default:
		if hasPrefixFold(signature, sha256Prefix) {
			signature = signature[len(sha256Prefix):]
		}
		actual := strings.ToLower(signature)
		return subtle.ConstantTimeCompare([]byte(actual), []byte(hex.EncodeToString(expected))) == 1
	}
}

func computeHMAC(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	_, _ = mac.Write(payload)
	return mac.Sum(nil)
}

func hasPrefixFold(value string, prefix string) bool {
	return len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix)
}
