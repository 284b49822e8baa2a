package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "churchconnect/internal/log"
)

const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJS sends mail through the EmailJS REST API using a template that
// takes to_email, subject, message and from_email parameters.
type EmailJS struct {
	Endpoint    string
	ServiceID   string
	TemplateID  string
	UserID      string
	AccessToken string
	// From is used when a message has no sender.
	From string

	Client *http.Client
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Configured reports whether the credentials needed to send are set.
func (e *EmailJS) Configured() bool {
	return e.ServiceID != "" && e.TemplateID != "" && e.UserID != ""
}

func (e *EmailJS) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}
	if !e.Configured() {
		return Receipt{}, fmt.Errorf("emailjs: service, template and user id are required")
	}

	from := msg.From
	if from == "" {
		from = e.From
	}
	payload := emailJSRequest{
		ServiceID:   e.ServiceID,
		TemplateID:  e.TemplateID,
		UserID:      e.UserID,
		AccessToken: e.AccessToken,
		TemplateParams: map[string]string{
			"to_email":   msg.To,
			"subject":    msg.Subject,
			"message":    msg.Body,
			"from_email": from,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, err
	}

	endpoint := e.Endpoint
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	appLog.Debug("emailjs send", "to", msg.To, "subject", msg.Subject, "message_len", len(msg.Body))

	resp, err := client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("emailjs: %w", err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Receipt{}, fmt.Errorf("emailjs: %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}

	appLog.Info("emailjs sent", "to", msg.To, "status", resp.StatusCode)
	return Receipt{MessageID: strings.TrimSpace(string(text)), Provider: "emailjs"}, nil
}
