// Package signature computes and checks HMAC-SHA256 webhook signatures over raw request bytes.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func Compute(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Valid reports whether hexSignature is the HMAC of payload under secret. Comparison is
// constant time and ignores hex letter case.
func Valid(secret string, payload []byte, hexSignature string) bool {
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(hexSignature)))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
