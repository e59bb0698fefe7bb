package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// SMSSender sends templated SMS through the SMS gateway
type SMSSender struct {
	baseURL    string
	apiKey     string
	senderID   string
	templates  map[string]string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewSMSSender(cfg config.SMSConfig, logger *zap.Logger) *SMSSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSSender{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
		templates:  cfg.Templates,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type smsRequest struct {
	Sender     string            `json:"sender"`
	Mobile     string            `json:"mobile"`
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables"`
}

// Send delivers the SMS for a notification.
func (s *SMSSender) Send(ctx context.Context, n *CustomerNotification) error {
	if s.baseURL == "" || s.apiKey == "" {
		return fmt.Errorf("sms sender not configured")
	}
	templateID := s.templates[TemplateKey(n.Status)]
	if templateID == "" {
		return fmt.Errorf("no sms template for status %s", n.Status)
	}
	if n.Phone == "" {
		return fmt.Errorf("customer phone is empty")
	}

	body, err := json.Marshal(smsRequest{
		Sender:     s.senderID,
		Mobile:     n.Phone,
		TemplateID: templateID,
		Variables: map[string]string{
			"name":    n.CustomerName,
			"order":   n.OrderNumber,
			"store":   n.StoreName,
			"comment": n.Comment,
			"total":   n.Total.StringFixed(2),
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &apperrors.ErrExternal{System: "sms", Status: resp.StatusCode, Body: string(respBody)}
	}

	s.logger.Info("Status SMS sent", zap.String("split_id", n.SplitID), zap.String("status", string(n.Status)))
	return nil
}
