package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"careops/internal/config"
)

// SMSClient posts messages to an HTTP SMS provider. The provider contract
// is a JSON body and a 2xx status on accepted delivery; anything else is a
// delivery failure.
type SMSClient struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSMSClient(cfg config.SMSConfig) *SMSClient {
	return &SMSClient{cfg: cfg, client: &http.Client{}}
}

type smsPayload struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

func (s *SMSClient) Send(ctx context.Context, toPhone, body string) error {
	if !s.cfg.Enabled() {
		return fmt.Errorf("sms is not configured")
	}

	raw, err := json.Marshal(smsPayload{To: toPhone, From: s.cfg.From, Body: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
