package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	secret := "whsec_test"
	bodies := [][]byte{
		[]byte(`{"status":"completed"}`),
		[]byte("x"),
		[]byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`),
	}

	for _, body := range bodies {
		sig := Compute(secret, body)
		assert.True(t, Valid(secret, body, sig))
		assert.True(t, Valid(secret, body, strings.ToUpper(sig)))

		tampered := append(append([]byte{}, body...), ' ')
		assert.False(t, Valid(secret, tampered, sig))
		assert.False(t, Valid("other", body, sig))
		assert.False(t, Valid(secret, body, flipFirst(sig)))
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	assert.False(t, Valid("s", []byte("body"), ""))
	assert.False(t, Valid("s", []byte("body"), "not-hex"))
}

func flipFirst(sig string) string {
	if sig[0] == '0' {
		return "1" + sig[1:]
	}
	return "0" + sig[1:]
}
