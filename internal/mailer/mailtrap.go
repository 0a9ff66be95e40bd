package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MailtrapMailer sends through the Mailtrap HTTP API instead of SMTP.
// Handy in sandboxes where outbound SMTP is blocked.
type MailtrapMailer struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func NewMailtrapMailer(apiURL, apiKey string) *MailtrapMailer {
	return &MailtrapMailer{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type mailtrapPerson struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapPayload struct {
	From     mailtrapPerson   `json:"from"`
	To       []mailtrapPerson `json:"to"`
	Subject  string           `json:"subject"`
	Text     string           `json:"text,omitempty"`
	HTML     string           `json:"html,omitempty"`
	Category string           `json:"category,omitempty"`
}

func (m *MailtrapMailer) Send(ctx context.Context, e Email) error {
	if m.apiURL == "" || m.apiKey == "" {
		return fmt.Errorf("mailtrap credentials not configured")
	}

	to := make([]mailtrapPerson, 0, len(e.To))
	for _, addr := range e.To {
		to = append(to, mailtrapPerson{Email: addr})
	}

	payload := mailtrapPayload{
		From:     mailtrapPerson{Email: e.From, Name: e.FromName},
		To:       to,
		Subject:  e.Subject,
		Text:     e.TextBody,
		HTML:     e.HTMLBody,
		Category: "Transactional",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return fmt.Errorf("mailtrap API error: %d", res.StatusCode)
	}
	return nil
}
