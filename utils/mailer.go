package utils

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	brevo "github.com/sendinblue/APIv3-go-library/v2/lib"
	"go.uber.org/zap"
)

const (
	TemplateWelcome          = "welcome.html"
	TemplateOrderPlaced      = "order_placed.html"
	TemplateCommissionEarned = "commission_earned.html"
	TemplatePayoutSent       = "payout_sent.html"
)

var ErrNoBrevoKey = errors.New("brevo API Key not found in environment")

//go:embed html/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "html/*.html"))

// EmailAPI is the Brevo transactional email endpoint.
type EmailAPI interface {
	SendTransacEmail(ctx context.Context, email brevo.SendSmtpEmail) (brevo.CreateSmtpEmail, *http.Response, error)
}

type Mailer struct {
	api    EmailAPI
	sender brevo.SendSmtpEmailSender
	logger *zap.Logger
}

// NewMailer sets up the Brevo client. Without an API key every send fails
// with ErrNoBrevoKey, which callers treat as non-fatal.
func NewMailer(apiKey, senderName, senderEmail string, logger *zap.Logger) *Mailer {
	m := &Mailer{
		sender: brevo.SendSmtpEmailSender{Name: senderName, Email: senderEmail},
		logger: logger,
	}
	if apiKey != "" {
		cfg := brevo.NewConfiguration()
		cfg.AddDefaultHeader("api-key", apiKey)
		m.api = brevo.NewAPIClient(cfg).TransactionalEmailsApi
	}
	return m
}

func NewMailerWithAPI(api EmailAPI, senderName, senderEmail string, logger *zap.Logger) *Mailer {
	return &Mailer{
		api:    api,
		sender: brevo.SendSmtpEmailSender{Name: senderName, Email: senderEmail},
		logger: logger,
	}
}

// Render executes one of the embedded HTML templates.
func Render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// Send renders the template and sends it to a single recipient.
func (m *Mailer) Send(ctx context.Context, toEmail, toName, subject, tmpl string, data any) error {
	if m.api == nil {
		return ErrNoBrevoKey
	}

	html, err := Render(tmpl, data)
	if err != nil {
		m.logger.Error("Error executing template", zap.String("template", tmpl), zap.Error(err))
		return err
	}

	sender := m.sender
	email := brevo.SendSmtpEmail{
		Sender:      &sender,
		To:          []brevo.SendSmtpEmailTo{{Name: toName, Email: toEmail}},
		Subject:     subject,
		HtmlContent: html,
	}

	if _, _, err := m.api.SendTransacEmail(ctx, email); err != nil {
		m.logger.Error("Error while sending email", zap.String("to", toEmail), zap.Error(err))
		return err
	}
	m.logger.Debug("Email sent", zap.String("to", toEmail), zap.String("template", tmpl))
	return nil
}
