// Package mail renders and delivers account emails (verification and
// password reset). Delivery goes through a Sender: SES directly, a RabbitMQ
// queue drained by cmd/mailworker, or the log in development.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var actionTemplate = template.Must(template.ParseFS(templateFS, "templates/action.html"))

// Message is a rendered email ready for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer is what the session manager depends on.
type Mailer interface {
	SendVerifyEmail(ctx context.Context, to, token string) error
	SendForgotPasswordEmail(ctx context.Context, to, token string) error
}

type actionData struct {
	Title     string
	Content   string
	TitleLink string
	Link      string
}

// TemplateMailer renders the action template and hands the result to a Sender.
type TemplateMailer struct {
	sender    Sender
	clientURL string
}

func NewTemplateMailer(sender Sender, clientURL string) *TemplateMailer {
	return &TemplateMailer{sender: sender, clientURL: strings.TrimRight(clientURL, "/")}
}

func (m *TemplateMailer) SendVerifyEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Verify your email", actionData{
		Title:     "Please verify your email",
		Content:   "Please click the button below to verify your email",
		TitleLink: "Verify",
		Link:      m.link("/verify-email", token),
	})
}

func (m *TemplateMailer) SendForgotPasswordEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, to, "Reset your password", actionData{
		Title:     "You are receiving this email because you requested to reset your password",
		Content:   "Click the button below to reset your password",
		TitleLink: "Reset password",
		Link:      m.link("/forgot-password", token),
	})
}

func (m *TemplateMailer) link(path, token string) string {
	return m.clientURL + path + "?token=" + url.QueryEscape(token)
}

func (m *TemplateMailer) send(ctx context.Context, to, subject string, data actionData) error {
	var buf bytes.Buffer
	if err := actionTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %q email: %w", subject, err)
	}
	return m.sender.Send(ctx, Message{To: to, Subject: subject, HTML: buf.String()})
}
