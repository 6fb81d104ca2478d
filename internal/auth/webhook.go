package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrSignatureMismatch is returned for every way a webhook signature can be
// wrong: empty, truncated, or simply not matching the body. One error on
// purpose — a more informative rejection would help an attacker calibrate
// forged signatures.
var ErrSignatureMismatch = errors.New("auth: webhook signature mismatch")

// WebhookVerifier authenticates payment-provider callbacks with a
// shared-secret HMAC before they are allowed to touch enrollment state.
//
// The signature covers the EXACT raw request body. Handlers must call Verify
// on the unparsed bytes — parse-then-reserialize would change whitespace and
// key order and break the comparison byte-for-byte.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: webhook secret must not be empty")
	}
	return &WebhookVerifier{secret: []byte(secret)}, nil
}

// Sign computes the hex-encoded HMAC-SHA256 of body. This is what the
// provider is configured to send in the X-Signature header; exported so tests
// and local tooling can produce valid signatures.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature header against the raw body.
//
// hmac.Equal is a constant-time comparison — a plain string compare would
// leak, through response timing, how many leading bytes of a forged
// signature were correct.
func (v *WebhookVerifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return ErrSignatureMismatch
	}

	expected := v.Sign(body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
