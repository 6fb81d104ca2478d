package auth

import (
	"errors"
	"testing"
)

func newTestVerifier(t *testing.T) *WebhookVerifier {
	t.Helper()
	v, err := NewWebhookVerifier("webhook-test-secret")
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}
	return v
}

func TestNewWebhookVerifier_EmptySecret(t *testing.T) {
	if _, err := NewWebhookVerifier(""); err == nil {
		t.Fatal("NewWebhookVerifier() should reject an empty secret")
	}
}

func TestVerify_ValidSignature(t *testing.T) {
	v := newTestVerifier(t)
	body := []byte(`{"userId":"u1","courseId":"c1","paymentId":"pay_123"}`)

	if err := v.Verify(body, v.Sign(body)); err != nil {
		t.Fatalf("Verify() with a correct signature error = %v", err)
	}
}

func TestVerify_EmptySignature(t *testing.T) {
	v := newTestVerifier(t)

	err := v.Verify([]byte(`{}`), "")
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("Verify() with empty signature error = %v, want ErrSignatureMismatch", err)
	}
}

// A single flipped byte in either the body or the signature must fail
// verification.
func TestVerify_MutatedBody(t *testing.T) {
	v := newTestVerifier(t)
	body := []byte(`{"paymentId":"pay_123"}`)
	sig := v.Sign(body)

	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01

		if err := v.Verify(mutated, sig); !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("Verify() accepted a body mutated at byte %d", i)
		}
	}
}

func TestVerify_MutatedSignature(t *testing.T) {
	v := newTestVerifier(t)
	body := []byte(`{"paymentId":"pay_123"}`)
	sig := v.Sign(body)

	for i := range sig {
		mutated := []byte(sig)
		// Stay within hex characters so the mutation isn't trivially invalid.
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}

		if err := v.Verify(body, string(mutated)); !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("Verify() accepted a signature mutated at byte %d", i)
		}
	}
}

func TestVerify_DifferentSecrets(t *testing.T) {
	v1, _ := NewWebhookVerifier("secret-one")
	v2, _ := NewWebhookVerifier("secret-two")
	body := []byte(`{"paymentId":"pay_123"}`)

	if err := v2.Verify(body, v1.Sign(body)); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatal("Verify() should reject a signature produced with a different secret")
	}
}
