package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// EmailSender sends templated customer emails through SendGrid
type EmailSender struct {
	apiKey    string
	host      string
	from      *mail.Email
	templates map[string]string
	logger    *zap.Logger
}

func NewEmailSender(cfg config.EmailConfig, logger *zap.Logger) *EmailSender {
	return NewEmailSenderWithHost(cfg, sendGridHost, logger)
}

// NewEmailSenderWithHost points the sender at another API host.
func NewEmailSenderWithHost(cfg config.EmailConfig, host string, logger *zap.Logger) *EmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSender{
		apiKey:    cfg.SendGridAPIKey,
		host:      host,
		from:      mail.NewEmail(cfg.FromName, cfg.FromAddress),
		templates: cfg.Templates,
		logger:    logger,
	}
}

// BuildMessage builds the dynamic-template message for a notification.
func (s *EmailSender) BuildMessage(n *CustomerNotification) (*mail.SGMailV3, error) {
	key := TemplateKey(n.Status)
	templateID := s.templates[key]
	if templateID == "" {
		return nil, fmt.Errorf("no email template for status %s", n.Status)
	}
	if n.Email == "" {
		return nil, fmt.Errorf("customer email is empty")
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.SetTemplateID(templateID)

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(n.CustomerName, n.Email))
	for k, v := range n.templateData() {
		p.SetDynamicTemplateData(k, v)
	}
	m.AddPersonalizations(p)
	return m, nil
}

// Send delivers the email for a notification.
func (s *EmailSender) Send(ctx context.Context, n *CustomerNotification) error {
	if s.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	m, err := s.BuildMessage(n)
	if err != nil {
		return err
	}

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("SendGrid rejected email",
			zap.Int("status", response.StatusCode),
			zap.String("body", response.Body),
			zap.String("split_id", n.SplitID),
		)
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	s.logger.Info("Status email sent",
		zap.String("split_id", n.SplitID),
		zap.String("status", string(n.Status)),
		zap.Int("sendgrid_status", response.StatusCode),
	)
	return nil
}
