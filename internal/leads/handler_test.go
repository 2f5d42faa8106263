package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/botcheck"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/observability/metrics"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

type stubVerifier struct {
	result   botcheck.Result
	calls    int
	token    string
	remoteIP string
}

func (s *stubVerifier) Verify(_ context.Context, token, remoteIP string) botcheck.Result {
	s.calls++
	s.token = token
	s.remoteIP = remoteIP
	return s.result
}

type recordingNotifier struct {
	leads []*Lead
	err   error
	panic bool
	ctx   context.Context
}

func (n *recordingNotifier) NotifyNewLead(ctx context.Context, lead *Lead) error {
	n.ctx = ctx
	n.leads = append(n.leads, lead)
	if n.panic {
		panic("template exploded")
	}
	return n.err
}

func newTestHandler(v Verifier, n Notifier) *Handler {
	h := NewHandler(v, n, nil, logging.New("error"))
	h.now = func() time.Time { return time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC) }
	return h
}

func postLead(h *Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/lead", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.SubmitLead(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestSubmitLead_SuccessWithBotCheckDisabled(t *testing.T) {
	verifier := &stubVerifier{result: botcheck.Result{Outcome: botcheck.OutcomeSkipped}}
	notifier := &recordingNotifier{}
	h := newTestHandler(verifier, notifier)

	w := postLead(h, `{"name":"Jane Doe","email":"jane@example.com","phone":"(303) 555-0100","service":"Multifamily"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if body := decodeBody(t, w); body["success"] != true {
		t.Fatalf("expected success true, got %v", body)
	}
	if len(notifier.leads) != 1 {
		t.Fatalf("expected 1 dispatched lead, got %d", len(notifier.leads))
	}
	lead := notifier.leads[0]
	if lead.Phone != "3035550100" || lead.ProjectType != "Multifamily" {
		t.Fatalf("unexpected normalized lead %+v", lead)
	}
	if lead.SubmittedAt.IsZero() {
		t.Fatalf("expected submission time to be set")
	}
}

func TestSubmitLead_NilVerifierSkipsCheck(t *testing.T) {
	notifier := &recordingNotifier{}
	h := newTestHandler(nil, notifier)

	w := postLead(h, `{"name":"Jane"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(notifier.leads) != 1 {
		t.Fatalf("expected lead to be dispatched")
	}
}

func TestSubmitLead_MissingTokenRejectedWithoutDispatch(t *testing.T) {
	verifier := &stubVerifier{result: botcheck.Result{Outcome: botcheck.OutcomeMissingToken}}
	notifier := &recordingNotifier{}
	h := newTestHandler(verifier, notifier)

	w := postLead(h, `{"name":"Jane Doe","email":"jane@example.com","phone":"3035550100"}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Turnstile token is required" {
		t.Fatalf("unexpected error body %v", body)
	}
	if len(notifier.leads) != 0 {
		t.Fatalf("expected no dispatch, got %d", len(notifier.leads))
	}
}

func TestSubmitLead_FailedVerification(t *testing.T) {
	for _, outcome := range []botcheck.Outcome{botcheck.OutcomeRejected, botcheck.OutcomeError} {
		t.Run(string(outcome), func(t *testing.T) {
			verifier := &stubVerifier{result: botcheck.Result{Outcome: outcome}}
			notifier := &recordingNotifier{}
			h := newTestHandler(verifier, notifier)

			w := postLead(h, `{"name":"Jane","turnstileToken":"tok"}`, nil)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if body := decodeBody(t, w); body["error"] != "Turnstile verification failed" {
				t.Fatalf("unexpected error body %v", body)
			}
			if len(notifier.leads) != 0 {
				t.Fatalf("expected no dispatch")
			}
		})
	}
}

func TestSubmitLead_PassesTokenAliasAndClientIP(t *testing.T) {
	verifier := &stubVerifier{result: botcheck.Result{Outcome: botcheck.OutcomePassed}}
	h := newTestHandler(verifier, &recordingNotifier{})

	w := postLead(h, `{"name":"Jane","cf-turnstile-response":"widget-token"}`, map[string]string{
		"X-Forwarded-For": "198.51.100.4, 10.0.0.1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if verifier.token != "widget-token" {
		t.Fatalf("expected alias token, got %q", verifier.token)
	}
	if verifier.remoteIP != "198.51.100.4" {
		t.Fatalf("expected first forwarded ip, got %q", verifier.remoteIP)
	}
}

func TestSubmitLead_InvalidJSON(t *testing.T) {
	verifier := &stubVerifier{}
	notifier := &recordingNotifier{}
	h := newTestHandler(verifier, notifier)

	w := postLead(h, "{", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Invalid request body" {
		t.Fatalf("unexpected error body %v", body)
	}
	if verifier.calls != 0 || len(notifier.leads) != 0 {
		t.Fatalf("expected nothing to run after a parse failure")
	}
}

func TestSubmitLead_OversizedBody(t *testing.T) {
	h := newTestHandler(nil, &recordingNotifier{})
	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	w := postLead(h, big, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestSubmitLead_NotifierErrorStillSucceeds(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("webhook: connection refused")}
	h := newTestHandler(nil, notifier)

	w := postLead(h, `{"name":"Jane"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestSubmitLead_NotifierPanicStillSucceeds(t *testing.T) {
	notifier := &recordingNotifier{panic: true}
	h := newTestHandler(nil, notifier)

	w := postLead(h, `{"name":"Jane"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

type panickingVerifier struct{}

func (panickingVerifier) Verify(context.Context, string, string) botcheck.Result {
	panic("nil map")
}

func TestSubmitLead_UnexpectedFaultReturns500(t *testing.T) {
	h := newTestHandler(panickingVerifier{}, &recordingNotifier{})

	w := postLead(h, `{"name":"Jane"}`, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Failed to submit lead" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestSubmitLead_DispatchContextNotCancelledWithRequest(t *testing.T) {
	notifier := &recordingNotifier{}
	h := newTestHandler(nil, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/lead", strings.NewReader(`{"name":"Jane"}`)).WithContext(ctx)
	h.SubmitLead(httptest.NewRecorder(), req)

	if notifier.ctx == nil || notifier.ctx.Err() != nil {
		t.Fatalf("expected dispatch context to survive request cancellation")
	}
}

func TestSubmitLead_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLeadMetrics(reg)
	h := NewHandler(&stubVerifier{result: botcheck.Result{Outcome: botcheck.OutcomeMissingToken}}, &recordingNotifier{}, m, logging.New("error"))

	postLead(h, `{"name":"Jane"}`, nil)

	count, err := testutil.GatherAndCount(reg, "denver1031_leads_submissions_total", "denver1031_leads_verification_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected one submission and one verification series, got %d", count)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/lead", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	if got := clientIP(req); got != "192.0.2.10" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Real-Ip", "192.0.2.20")
	if got := clientIP(req); got != "192.0.2.20" {
		t.Fatalf("expected x-real-ip, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "192.0.2.30")
	if got := clientIP(req); got != "192.0.2.30" {
		t.Fatalf("expected x-forwarded-for, got %q", got)
	}
}

func TestSubmitLead_LogsNoPersonalData(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(nil, &recordingNotifier{}, nil, logging.NewWithWriter(&buf, "debug"))

	w := postLead(h, `{"name":"Jane Doe","email":"jane@example.com","phone":"3035550100","details":"sell fourplex"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"email_domain":"example.com"`) {
		t.Fatalf("expected email domain in logs, got %s", logs)
	}
	for _, pii := range []string{"Jane", "jane@example.com", "3035550100", "fourplex"} {
		if strings.Contains(logs, pii) {
			t.Errorf("log output contains %q: %s", pii, logs)
		}
	}
}
