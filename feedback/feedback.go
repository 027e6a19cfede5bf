// Package feedback sends user-submitted feedback to the site operator by
// email.
package feedback

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Submission is one piece of feedback from the feedback form.
type Submission struct {
	FromName  string
	FromEmail string
	Subject   string
	Message   string
	Timestamp time.Time
}

// Mailer forwards feedback submissions through SendGrid.
type Mailer struct {
	sendgridClient *sendgrid.Client
	toAddr         string
	fromAddr       string
}

func New(sendgridClient *sendgrid.Client, toAddr, fromAddr string) *Mailer {
	return &Mailer{
		sendgridClient: sendgridClient,
		toAddr:         toAddr,
		fromAddr:       fromAddr,
	}
}

const emailPlain = `You have received new feedback from FlowerPress!

From: {{.FromName}} ({{.FromEmail}})
Subject: {{.Subject}}
Time: {{.Timestamp.Format "2006-01-02 15:04:05 MST"}}

Message:
{{.Message}}

---
Sent from the FlowerPress app
`

var emailPlainTemplate = template.Must(template.New("feedback").Parse(emailPlain))

// Send forwards one submission.  Failures are returned to the caller, which
// surfaces a retryable error to the submitting UI.
func (m *Mailer) Send(ctx context.Context, sub *Submission) error {
	message, err := m.buildMessage(sub)
	if err != nil {
		return err
	}

	resp, err := m.sendgridClient.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through Sendgrid: %d %s", resp.StatusCode, resp.Body)
	}

	return nil
}

func (m *Mailer) buildMessage(sub *Submission) (*mail.SGMailV3, error) {
	message := mail.NewV3Mail()
	message.From = mail.NewEmail("FlowerPress Bot", m.fromAddr)
	message.Subject = fmt.Sprintf("FlowerPress Feedback: %s", sub.Subject)

	personalization := mail.NewPersonalization()
	personalization.To = append(personalization.To, mail.NewEmail("", m.toAddr))
	message.Personalizations = append(message.Personalizations, personalization)

	textContent := &bytes.Buffer{}
	if err := emailPlainTemplate.Execute(textContent, sub); err != nil {
		return nil, fmt.Errorf("while templating plain-text email content: %w", err)
	}

	message.Content = append(message.Content, mail.NewContent("text/plain", textContent.String()))

	return message, nil
}
