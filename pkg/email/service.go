// Package email delivers run reports over SendGrid. Without an API key
// the service logs the digest instead, which keeps local runs quiet.
package email

import (
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/mentorlane/insights/pkg/logger"
)

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	useSendGrid bool
	log         logger.Logger
}

// NewService creates a new email service. If sendGridAPIKey is empty
// the service runs in console-only mode.
func NewService(fromEmail, fromName, sendGridAPIKey string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Info("email service initialized with SendGrid")
	} else {
		log.Warn("email service in console-only mode (set SENDGRID_API_KEY for production)")
	}
	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
		log:         log,
	}
}

// SendReport mails the markdown digest of a pipeline run.
func (s *Service) SendReport(toEmail, subject, markdown string) error {
	if !s.useSendGrid {
		s.log.Info("report email skipped (console mode)", "to", toEmail, "subject", subject, "bytes", len(markdown))
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toEmail, toEmail)
	html := "<pre>" + htmlEscape(markdown) + "</pre>"

	message := mail.NewSingleEmail(from, subject, to, markdown, html)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	s.log.Info("report email sent", "to", toEmail, "status", response.StatusCode)
	return nil
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
