package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rostersync/internal/notification/models"
	"rostersync/internal/upstream"
	"rostersync/pkg/email"
)

const relayProvider = "mail-relay"

// EmailRelay posts messages to an HTTP mail relay.
type EmailRelay struct {
	httpClient *http.Client
	url        string
}

func NewEmailRelay(url string, timeout time.Duration) *EmailRelay {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &EmailRelay{url: url, httpClient: &http.Client{Timeout: timeout}}
}

type relayMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (e *EmailRelay) SendEmail(ctx context.Context, r models.Recipient, c models.Copy) error {
	to, err := email.Address(r.DisplayName, r.Email)
	if err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	body, err := json.Marshal(relayMessage{To: to, Subject: c.Title, Text: c.Body})
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return upstream.FromTransport(relayProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return upstream.FromStatus(relayProvider, resp.StatusCode, string(raw))
	}
	return nil
}
