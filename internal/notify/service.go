package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/brand"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/leads"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/observability/metrics"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

var tracer = otel.Tracer("denver1031.internal.notify")

// Delivery channel labels used in logs and metrics.
const (
	ChannelWebhook       = "webhook"
	ChannelInternalEmail = "email_internal"
	ChannelCustomerEmail = "email_customer"
)

// WebhookPoster forwards a lead to the automation webhook.
type WebhookPoster interface {
	Post(ctx context.Context, lead *leads.Lead) error
}

const defaultDeliveryTimeout = 10 * time.Second

// ServiceConfig carries the read-only settings for lead notifications.
// DeliveryTimeout bounds each delivery; zero means 10s.
type ServiceConfig struct {
	InternalRecipients   []string
	CustomerConfirmation bool
	Brand                brand.Context
	DeliveryTimeout      time.Duration
}

// Service delivers new leads over the webhook and email channels. Each
// channel is best-effort: failures are logged and never block the others.
type Service struct {
	email   EmailSender
	webhook WebhookPoster
	cfg     ServiceConfig
	metrics *metrics.LeadMetrics
	logger  *logging.Logger
}

// NewService creates a notification service. Nil senders disable their channel.
func NewService(email EmailSender, webhook WebhookPoster, cfg ServiceConfig, m *metrics.LeadMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	return &Service{
		email:   email,
		webhook: webhook,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

type delivery struct {
	channel string
	run     func(ctx context.Context) error
}

// NotifyNewLead runs every configured delivery concurrently and waits for all
// of them to settle. The joined error is for logging only.
func (s *Service) NotifyNewLead(ctx context.Context, lead *leads.Lead) error {
	if lead == nil {
		return errors.New("notify: nil lead")
	}
	ctx, span := tracer.Start(ctx, "notify.new_lead")
	defer span.End()

	deliveries := s.plan(lead)
	span.SetAttributes(attribute.Int("notify.deliveries", len(deliveries)))

	errs := make([]error, len(deliveries))
	var wg sync.WaitGroup
	for i, d := range deliveries {
		wg.Add(1)
		go func(i int, d delivery) {
			defer wg.Done()
			errs[i] = s.attempt(ctx, d)
		}(i, d)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// plan lists the deliveries for lead, recording skipped channels.
func (s *Service) plan(lead *leads.Lead) []delivery {
	var out []delivery

	if s.webhook != nil {
		out = append(out, delivery{
			channel: ChannelWebhook,
			run:     func(ctx context.Context) error { return s.webhook.Post(ctx, lead) },
		})
	} else {
		s.skip(ChannelWebhook, "webhook url not configured")
	}

	if s.email == nil {
		s.skip(ChannelInternalEmail, "email sender not configured")
		s.skip(ChannelCustomerEmail, "email sender not configured")
		return out
	}

	if len(s.cfg.InternalRecipients) == 0 {
		s.skip(ChannelInternalEmail, "no internal recipients configured")
	}
	for _, to := range s.cfg.InternalRecipients {
		out = append(out, delivery{
			channel: ChannelInternalEmail,
			run: func(ctx context.Context) error {
				msg, err := InternalAlert(lead, s.cfg.Brand, to)
				if err != nil {
					return err
				}
				return s.email.Send(ctx, msg)
			},
		})
	}

	switch {
	case !s.cfg.CustomerConfirmation:
		s.skip(ChannelCustomerEmail, "customer confirmation disabled")
	case lead.Email == "":
		s.skip(ChannelCustomerEmail, "lead has no email")
	default:
		out = append(out, delivery{
			channel: ChannelCustomerEmail,
			run: func(ctx context.Context) error {
				msg, err := CustomerConfirmation(lead, s.cfg.Brand)
				if err != nil {
					return err
				}
				return s.email.Send(ctx, msg)
			},
		})
	}
	return out
}

// attempt runs one delivery under its own deadline. The caller's context
// carries none, so this is the only bound on a hung provider.
func (s *Service) attempt(ctx context.Context, d delivery) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("notify: %s panicked: %v", d.channel, rec)
		}
		s.metrics.ObserveDeliveryLatency(d.channel, time.Since(start).Seconds())
		switch {
		case errors.Is(err, ErrWebhookNotConfigured), errors.Is(err, ErrEmailNotConfigured):
			s.skip(d.channel, err.Error())
			err = nil
		case err != nil:
			s.metrics.ObserveDelivery(d.channel, "failed")
			s.logger.Error("notify: delivery failed", "channel", d.channel, "error", err)
			err = fmt.Errorf("%s: %w", d.channel, err)
		default:
			s.metrics.ObserveDelivery(d.channel, "sent")
			s.logger.Info("notify: delivery sent", "channel", d.channel)
		}
	}()
	return d.run(ctx)
}

func (s *Service) skip(channel, reason string) {
	s.metrics.ObserveDelivery(channel, "skipped")
	s.logger.Debug("notify: delivery skipped", "channel", channel, "reason", reason)
}
