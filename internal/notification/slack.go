package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Slack struct {
	webhookURL string
	client     *http.Client
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *Slack) Name() string {
	return "slack"
}

func (s *Slack) Send(ctx context.Context, event Event) error {
	if s.webhookURL == "" {
		return fmt.Errorf("missing_webhook_url")
	}

	msg := map[string]any{
		"text": slackText(event),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack_api_error: status=%d", resp.StatusCode)
	}
	return nil
}

func slackText(e Event) string {
	verb := "paid"
	if e.Type == EventOrderPaymentFailed {
		verb = "payment failed"
	}
	text := fmt.Sprintf("*Order %s %s*\nTotal: %.2f %s via %s", e.OrderNumber, verb, e.Total, e.Currency, e.PaymentMethod)
	if e.TransactionID != "" {
		text += "\nTransaction: " + e.TransactionID
	}
	return text
}
