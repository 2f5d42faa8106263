package botcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

var tracer = otel.Tracer("denver1031.internal.botcheck")

// DefaultVerifyURL is Cloudflare's Turnstile siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Outcome classifies a verification attempt.
type Outcome string

const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomePassed       Outcome = "passed"
	OutcomeMissingToken Outcome = "missing_token"
	OutcomeRejected     Outcome = "rejected"
	OutcomeError        Outcome = "error"
)

// Result is the trust decision for one submission.
type Result struct {
	Outcome    Outcome
	ErrorCodes []string
}

// Verified is true for passed tokens and for deployments without a secret.
func (r Result) Verified() bool {
	return r.Outcome == OutcomePassed || r.Outcome == OutcomeSkipped
}

// Err maps a failed result to its sentinel error.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomePassed, OutcomeSkipped:
		return nil
	case OutcomeMissingToken:
		return ErrMissingToken
	default:
		return ErrVerificationFailed
	}
}

// TurnstileConfig configures the verifier.
type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

// TurnstileVerifier checks Cloudflare Turnstile tokens server-side.
type TurnstileVerifier struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTurnstileVerifier builds a verifier. With an empty secret every check is skipped.
func NewTurnstileVerifier(cfg TurnstileConfig, logger *logging.Logger) *TurnstileVerifier {
	if logger == nil {
		logger = logging.Default()
	}
	verifyURL := strings.TrimSpace(cfg.VerifyURL)
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TurnstileVerifier{
		secret:    strings.TrimSpace(cfg.SecretKey),
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Enabled reports whether a secret is configured.
func (v *TurnstileVerifier) Enabled() bool {
	return v != nil && v.secret != ""
}

type siteverifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
	RemoteIP string `json:"remoteip,omitempty"`
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// Verify makes a single siteverify call. Transport and decode failures fail closed.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) Result {
	if !v.Enabled() {
		return Result{Outcome: OutcomeSkipped}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{Outcome: OutcomeMissingToken}
	}

	ctx, span := tracer.Start(ctx, "botcheck.turnstile.verify", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := v.call(ctx, token, remoteIP)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("botcheck.outcome", string(OutcomeError)))
		v.logger.Error("turnstile verification error", "error", err)
		return Result{Outcome: OutcomeError}
	}

	outcome := OutcomeRejected
	if resp.Success {
		outcome = OutcomePassed
	}
	span.SetAttributes(attribute.String("botcheck.outcome", string(outcome)))
	if outcome == OutcomeRejected {
		v.logger.Warn("turnstile token rejected", "error_codes", resp.ErrorCodes, "hostname", resp.Hostname)
	}
	return Result{Outcome: outcome, ErrorCodes: resp.ErrorCodes}
}

func (v *TurnstileVerifier) call(ctx context.Context, token, remoteIP string) (*siteverifyResponse, error) {
	body, err := json.Marshal(siteverifyRequest{
		Secret:   v.secret,
		Response: token,
		RemoteIP: remoteIP,
	})
	if err != nil {
		return nil, fmt.Errorf("botcheck: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("botcheck: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("botcheck: siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("botcheck: siteverify status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("botcheck: decode siteverify response: %w", err)
	}
	return &parsed, nil
}
