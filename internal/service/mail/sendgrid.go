package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
)

const DefaultSendGridBaseURL = "https://api.sendgrid.com"

// SendGrid sends mail through the SendGrid v3 Web API.
type SendGrid struct {
	request rest.Request
}

// NewSendGrid creates a SendGrid sender. baseURL may be empty.
func NewSendGrid(apiKey, baseURL string) (*SendGrid, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultSendGridBaseURL
	}

	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", baseURL)
	req.Method = rest.Post
	return &SendGrid{request: req}, nil
}

type sgErrors struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// Send posts the message and waits for SendGrid to accept it. Deadlines
// come from ctx.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return errs.Misconfigured("sendgrid send", err)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", msg.From))
	m.Subject = msg.Subject
	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	// text/plain must precede text/html.
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	if msg.Text == "" && msg.HTML == "" {
		m.AddContent(sgmail.NewContent("text/plain", " "))
	}

	// SendWithContext writes the body into the client's request, so every
	// send gets its own copy.
	client := &sendgrid.Client{Request: s.request}
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return errs.Upstream("sendgrid send", false, fmt.Errorf("sendgrid send: %w", err))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	auth := resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
	return errs.Upstream("sendgrid send", auth, fmt.Errorf("sendgrid send: %d %s", resp.StatusCode, sendGridMessage(resp.Body)))
}

func sendGridMessage(body string) string {
	var parsed sgErrors
	if err := json.Unmarshal([]byte(body), &parsed); err == nil && len(parsed.Errors) > 0 {
		parts := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			if e.Field != "" {
				parts = append(parts, e.Field+": "+e.Message)
				continue
			}
			parts = append(parts, e.Message)
		}
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(body)
}
