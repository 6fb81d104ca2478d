package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tahmid/coursehub/internal/model"
)

// newTestTokenService returns a TokenService with a fixed secret and a
// generous TTL so round-trip tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testUser() *model.User {
	return &model.User{
		ID:     "user-abc-123",
		Role:   model.RoleLearner,
		Status: model.StatusActive,
	}
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", 15*time.Minute)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_NonPositiveTTL(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject a zero TTL")
	}
}

// =========================================================================
// ISSUE / VERIFY TESTS
// =========================================================================

func TestIssueVerify_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()
	user.Role = model.RoleAdmin

	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Issue() token doesn't look like a JWT: %q", token)
	}

	identity, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.UserID != user.ID {
		t.Errorf("identity.UserID = %q, want %q", identity.UserID, user.ID)
	}
	if identity.Role != model.RoleAdmin {
		t.Errorf("identity.Role = %q, want %q", identity.Role, model.RoleAdmin)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	// A TTL of one nanosecond expires before Verify can run.
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Nanosecond)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := ts.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	_, err = ts.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(testUser())
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.Verify(tampered)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("Verify() error = %v, want ErrTokenMalformed", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", 15*time.Minute)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", 15*time.Minute)

	token, _ := ts1.Issue(testUser())

	if _, err := ts2.Verify(token); err == nil {
		t.Fatal("Verify() should fail when using a different secret")
	}
}

func TestVerify_GarbageInputs(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "garbage", "not.a.jwt"} {
		if _, err := ts.Verify(input); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenMalformed", input, err)
		}
	}
}

func TestVerify_UnknownRole(t *testing.T) {
	ts := newTestTokenService(t)

	user := testUser()
	user.Role = model.Role("SUPERUSER")
	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = ts.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid for unknown role", err)
	}
}

func TestVerify_EmptySubject(t *testing.T) {
	ts := newTestTokenService(t)

	user := testUser()
	user.ID = ""
	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = ts.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want ErrTokenInvalid for empty subject", err)
	}
}
