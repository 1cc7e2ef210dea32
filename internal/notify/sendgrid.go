package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid implements Notifier over the SendGrid mail API.
type SendGrid struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	toEmail   string
}

// NewSendGrid builds a SendGrid notifier.
func NewSendGrid(apiKey, fromName, fromEmail, toEmail string) (*SendGrid, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is not set")
	}
	if fromEmail == "" || toEmail == "" {
		return nil, fmt.Errorf("sendgrid from/to addresses must be set")
	}
	return &SendGrid{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		toEmail:   toEmail,
	}, nil
}

// Send delivers one plain-text mail.
func (s *SendGrid) Send(_ context.Context, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", s.toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send mail: sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
