package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tahmid/coursehub/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// okHandler records the identity it saw so tests can assert what the
// middleware put into the context.
type okHandler struct {
	identity Identity
	sawID    bool
	called   bool
}

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.identity, h.sawID = IdentityFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func issueFor(t *testing.T, ts *TokenService, role model.Role) string {
	t.Helper()
	token, err := ts.Issue(&model.User{ID: "user-1", Role: role, Status: model.StatusActive})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

// =========================================================================
// RequireAuth TESTS
// =========================================================================

func TestRequireAuth_ValidToken(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}
	mw := RequireAuth(ts, testLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, ts, model.RoleLearner))
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !next.sawID {
		t.Fatal("handler did not find an identity in the request context")
	}
	if next.identity.UserID != "user-1" {
		t.Errorf("identity.UserID = %q, want %q", next.identity.UserID, "user-1")
	}
}

// Every credential failure must produce the exact same 401 body, so a client
// cannot tell a missing header from an expired or forged token.
func TestRequireAuth_UniformRejection(t *testing.T) {
	ts := newTestTokenService(t)

	expiredTS, _ := NewTokenService("test-secret-at-least-16-chars!!", time.Nanosecond)
	expired := issueFor(t, expiredTS, model.RoleLearner)
	time.Sleep(10 * time.Millisecond)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"scheme only", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next := &okHandler{}
			mw := RequireAuth(ts, testLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			mw.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			if next.called {
				t.Fatal("next handler ran despite rejection")
			}
			if rr.Body.String() != unauthorizedBody {
				t.Errorf("body = %q, want the uniform unauthorized body", rr.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("401 body is not valid JSON: %v", err)
			}
		})
	}
}

func TestRequireAuth_BearerSchemeIsCaseInsensitive(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}
	mw := RequireAuth(ts, testLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "bearer "+issueFor(t, ts, model.RoleLearner))
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for lowercase bearer scheme", rr.Code)
	}
}

// =========================================================================
// ROLE GATE TESTS
// =========================================================================

func TestRequireAdmin_RejectsLearner(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}
	mw := RequireAuth(ts, testLogger())(RequireAdmin(testLogger())(next))

	req := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, ts, model.RoleLearner))
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for learner on admin route", rr.Code)
	}
	if next.called {
		t.Fatal("next handler ran despite role rejection")
	}
}

func TestRequireAdmin_PassesAdmin(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}
	mw := RequireAuth(ts, testLogger())(RequireAdmin(testLogger())(next))

	req := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, ts, model.RoleAdmin))
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for admin", rr.Code)
	}
}

// Admins are learners too: learner routes accept both roles.
func TestRequireLearner_PassesBothRoles(t *testing.T) {
	ts := newTestTokenService(t)

	for _, role := range []model.Role{model.RoleLearner, model.RoleAdmin} {
		next := &okHandler{}
		mw := RequireAuth(ts, testLogger())(RequireLearner(testLogger())(next))

		req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
		req.Header.Set("Authorization", "Bearer "+issueFor(t, ts, role))
		rr := httptest.NewRecorder()

		mw.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("role %s: status = %d, want 200", role, rr.Code)
		}
	}
}

// A role gate mounted without RequireAuth in front sees no identity and must
// fail closed with 401, not panic or pass.
func TestRoleGate_NoIdentityInContext(t *testing.T) {
	next := &okHandler{}
	mw := RequireAdmin(testLogger())(next)

	req := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
	rr := httptest.NewRecorder()

	mw.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when no identity is present", rr.Code)
	}
	if next.called {
		t.Fatal("next handler ran without an identity")
	}
}
