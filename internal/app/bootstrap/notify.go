package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/botcheck"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/brand"
	appconfig "github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/config"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/notify"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/observability/metrics"
	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/pkg/logging"
)

// Email provider names accepted by EMAIL_PROVIDER.
const (
	EmailProviderAuto     = "auto"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderSMTP     = "smtp"
	EmailProviderStub     = "stub"
	EmailProviderNone     = "none"
)

// SESClientFactory lazily builds the SES client so AWS config is only
// loaded when SES is selected.
type SESClientFactory func(ctx context.Context) (notify.SESAPI, error)

// BuildEmailSender selects the email provider. It returns an untyped nil when
// email is disabled so the dispatcher sees a nil interface. Naming a provider
// without its credentials is an error; auto mode just falls through.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, newSES SESClientFactory, logger *logging.Logger) (notify.EmailSender, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	if provider == "" {
		provider = EmailProviderAuto
	}

	switch provider {
	case EmailProviderAuto:
		if strings.TrimSpace(cfg.SendGridAPIKey) != "" {
			return sendGridSender(cfg, logger), nil
		}
		if strings.TrimSpace(cfg.SMTPHost) != "" {
			return smtpSender(cfg, logger), nil
		}
		logger.Warn("no email provider configured, lead emails disabled")
		return nil, nil
	case EmailProviderSendGrid:
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
			return nil, errors.New("bootstrap: EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		return sendGridSender(cfg, logger), nil
	case EmailProviderSMTP:
		if strings.TrimSpace(cfg.SMTPHost) == "" {
			return nil, errors.New("bootstrap: EMAIL_PROVIDER=smtp requires SMTP_HOST")
		}
		return smtpSender(cfg, logger), nil
	case EmailProviderSES:
		if newSES == nil {
			return nil, errors.New("bootstrap: EMAIL_PROVIDER=ses requires an SES client factory")
		}
		client, err := newSES(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: build ses client: %w", err)
		}
		logger.Info("email provider selected", "provider", EmailProviderSES, "region", cfg.AWSRegion)
		return notify.NewSESSender(client, notify.SESConfig{
			FromEmail:        cfg.SendGridFromEmail,
			FromName:         cfg.SendGridFromName,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger), nil
	case EmailProviderStub:
		logger.Info("email provider selected", "provider", EmailProviderStub)
		return notify.NewStubEmailSender(logger), nil
	case EmailProviderNone:
		logger.Info("lead emails disabled by EMAIL_PROVIDER=none")
		return nil, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

func sendGridSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	logger.Info("email provider selected", "provider", EmailProviderSendGrid)
	return notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
}

func smtpSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	logger.Info("email provider selected", "provider", EmailProviderSMTP, "host", cfg.SMTPHost)
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		Timeout:   cfg.OutboundTimeout,
	}, logger)
}

// BuildBrand resolves the brand from env, overlaid by BRAND_CONFIG_PATH when set.
func BuildBrand(cfg *appconfig.Config) (brand.Context, error) {
	settings := brand.Settings{
		Name:     cfg.BrandName,
		Phone:    cfg.BrandPhone,
		Email:    cfg.BrandEmail,
		SiteURL:  cfg.BrandSiteURL,
		Timezone: cfg.BrandTimezone,
	}
	if path := strings.TrimSpace(cfg.BrandConfigPath); path != "" {
		merged, err := brand.LoadFile(path, settings)
		if err != nil {
			return brand.Context{}, err
		}
		settings = merged
	}
	return brand.New(settings)
}

// BuildVerifier returns the Turnstile verifier. Without a secret it skips every check.
func BuildVerifier(cfg *appconfig.Config, logger *logging.Logger) *botcheck.TurnstileVerifier {
	return botcheck.NewTurnstileVerifier(botcheck.TurnstileConfig{
		SecretKey: cfg.TurnstileSecretKey,
		VerifyURL: cfg.TurnstileVerifyURL,
		Timeout:   cfg.OutboundTimeout,
	}, logger)
}

// BuildNotifier wires the webhook and email channels into the dispatcher.
func BuildNotifier(cfg *appconfig.Config, email notify.EmailSender, b brand.Context, m *metrics.LeadMetrics, logger *logging.Logger) *notify.Service {
	var webhook notify.WebhookPoster
	if client := notify.NewWebhookClient(cfg.ZapierWebhookURL, cfg.OutboundTimeout); client != nil {
		webhook = client
	}
	return notify.NewService(email, webhook, notify.ServiceConfig{
		InternalRecipients:   cfg.SendGridToEmails,
		CustomerConfirmation: cfg.CustomerConfirmationEnabled,
		Brand:                b,
		DeliveryTimeout:      cfg.OutboundTimeout,
	}, m, logger)
}
