package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/botcheck"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/observability/metrics"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

var tracer = otel.Tracer("denver1031.internal.leads")

const maxBodyBytes = 64 << 10

// Response messages returned to the visitor.
const (
	msgInvalidBody        = "Invalid request body"
	msgTokenRequired      = "Turnstile token is required"
	msgVerificationFailed = "Turnstile verification failed"
	msgSubmitFailed       = "Failed to submit lead"
)

// Verifier decides whether a submission came from a human.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) botcheck.Result
}

// Notifier delivers a verified lead. A returned error is logged, never surfaced.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead *Lead) error
}

// Handler handles HTTP requests for leads
type Handler struct {
	verifier Verifier
	notifier Notifier
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler creates a new leads handler. A nil verifier skips the bot-check;
// a nil notifier drops leads after acknowledging them.
func NewHandler(verifier Verifier, notifier Notifier, m *metrics.LeadMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		verifier: verifier,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitResponse is the success body for POST /api/lead.
type SubmitResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the failure body for POST /api/lead.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitLead handles POST /api/lead: parse, verify, normalize, dispatch, respond.
func (h *Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "leads.submit")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("leads: panic: %v", rec)
			span.RecordError(err)
			h.logger.Error("lead submission error", "error", err)
			h.metrics.ObserveSubmission("error")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgSubmitFailed})
		}
	}()

	sub, err := decodeSubmission(w, r)
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("failed to decode lead submission", "error", err)
		h.metrics.ObserveSubmission("invalid")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody})
		return
	}

	result := h.verify(ctx, sub.Token(), clientIP(r))
	h.metrics.ObserveVerification(string(result.Outcome))
	span.SetAttributes(attribute.String("botcheck.outcome", string(result.Outcome)))
	if !result.Verified() {
		h.metrics.ObserveSubmission("rejected")
		msg := msgVerificationFailed
		if errors.Is(result.Err(), botcheck.ErrMissingToken) {
			msg = msgTokenRequired
		}
		h.logger.Warn("lead submission rejected", "outcome", result.Outcome)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	lead := Normalize(sub, h.now())
	span.SetAttributes(attribute.String("lead.project_type", lead.ProjectType))

	// Delivery outlives the request so a closed tab does not cancel it.
	h.dispatch(context.WithoutCancel(ctx), lead)

	h.logger.Info("lead accepted", "email_domain", lead.EmailDomain(), "project_type", lead.ProjectType)
	h.metrics.ObserveSubmission("success")
	writeJSON(w, http.StatusOK, SubmitResponse{Success: true})
}

func (h *Handler) verify(ctx context.Context, token, remoteIP string) botcheck.Result {
	if h.verifier == nil {
		return botcheck.Result{Outcome: botcheck.OutcomeSkipped}
	}
	return h.verifier.Verify(ctx, token, remoteIP)
}

// dispatch swallows every failure, panics included.
func (h *Handler) dispatch(ctx context.Context, lead *Lead) {
	if h.notifier == nil {
		h.logger.Warn("lead notifier not configured, lead not forwarded")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("lead notification panicked", "error", fmt.Sprint(rec))
		}
	}()
	if err := h.notifier.NotifyNewLead(ctx, lead); err != nil {
		h.logger.Error("lead notification incomplete", "error", err)
	}
}

func decodeSubmission(w http.ResponseWriter, r *http.Request) (Submission, error) {
	var sub Submission
	if r.Body == nil {
		return sub, ErrInvalidBody
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return sub, ErrBodyTooLarge
		}
		return sub, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return sub, nil
}

// clientIP is advisory only: forwarding headers can be spoofed.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
