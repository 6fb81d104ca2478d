package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/tahmid/coursehub/internal/auth"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/service"
)

// maxWebhookBody caps how much we read from the payment provider. Their
// payloads are a few hundred bytes; 1 MiB is generous.
const maxWebhookBody = 1 << 20

// EnrollmentHandler receives payment-provider callbacks and serves the
// learner-facing enrollment reads.
type EnrollmentHandler struct {
	verifier    *auth.WebhookVerifier
	enrollments *service.EnrollmentService
	logger      *slog.Logger
}

func NewEnrollmentHandler(verifier *auth.WebhookVerifier, enrollments *service.EnrollmentService, logger *slog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		verifier:    verifier,
		enrollments: enrollments,
		logger:      logger,
	}
}

// webhookPayload is what the payment provider posts on a completed purchase.
type webhookPayload struct {
	UserID    string `json:"userId"`
	CourseID  string `json:"courseId"`
	PaymentID string `json:"paymentId"`
}

// HandleNewEnrollment processes a purchase notification.
//
// HTTP: POST /enrollment/new, header X-Signature
//
// ORDER MATTERS: the raw body is read and the HMAC verified BEFORE any JSON
// parsing. The provider signed the exact bytes it sent; parsing first would
// both break byte-for-byte verification and let unauthenticated input reach
// the decoder. A bad signature gets a bare 401 with no detail an attacker
// could use to calibrate forgeries.
func (h *EnrollmentHandler) HandleNewEnrollment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("webhook: failed to read body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "unreadable request body",
		})
		return
	}

	if err := h.verifier.Verify(body, r.Header.Get("X-Signature")); err != nil {
		h.logger.Warn("webhook: signature verification failed",
			slog.String("remote", r.RemoteAddr),
			slog.Int("bodyBytes", len(body)),
		)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "invalid signature",
		})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("webhook: invalid JSON in signed payload", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	enrollment, err := h.enrollments.CreateFromWebhook(r.Context(), payload.UserID, payload.CourseID, payload.PaymentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, enrollment)
}

// HandleMyEnrollments returns the authenticated user's enrollments.
//
// HTTP: GET /api/me/enrollments (RequireAuth)
func (h *EnrollmentHandler) HandleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	enrollments, err := h.enrollments.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if enrollments == nil {
		enrollments = []model.Enrollment{}
	}
	writeJSON(w, http.StatusOK, enrollments)
}
