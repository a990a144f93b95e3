// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/email/templates"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendVoterKeyEmail(toEmail, name, electionTitle, voterKey, ballotURL string) error
	SendReminderEmail(toEmail, name, electionTitle string, endTime time.Time, ballotURL string) error
	SendNotificationEmail(toEmail, title, message, actionURL string) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	return &ResendClient{
		client:    resend.NewClient(config.ResendAPIKey),
		fromEmail: config.EmailFrom,
		fromName:  config.EmailFromName,
	}, nil
}

// SendVoterKeyEmail composes and sends the voter credential issuance email.
func (c *ResendClient) SendVoterKeyEmail(toEmail, name, electionTitle, voterKey, ballotURL string) error {
	content := templates.GetVoterKeyEmailContent(templates.VoterKeyEmailProps{
		Name:          name,
		ElectionTitle: electionTitle,
		VoterKey:      voterKey,
		BallotURL:     ballotURL,
	})

	subject := fmt.Sprintf("Your voting credential for %s", electionTitle)
	if err := c.send(toEmail, subject, content, "Your voting credential is inside"); err != nil {
		return fmt.Errorf("failed to send voter key email via Resend: %w", err)
	}
	return nil
}

// SendReminderEmail composes and sends the election-closing reminder email.
func (c *ResendClient) SendReminderEmail(toEmail, name, electionTitle string, endTime time.Time, ballotURL string) error {
	content := templates.GetReminderEmailContent(templates.ReminderEmailProps{
		Name:          name,
		ElectionTitle: electionTitle,
		EndTime:       endTime,
		BallotURL:     ballotURL,
	})

	subject := fmt.Sprintf("Reminder: voting in %s closes soon", electionTitle)
	if err := c.send(toEmail, subject, content, "Voting closes soon"); err != nil {
		return fmt.Errorf("failed to send reminder email via Resend: %w", err)
	}
	return nil
}

// SendNotificationEmail delivers a stored notification over the email channel.
func (c *ResendClient) SendNotificationEmail(toEmail, title, message, actionURL string) error {
	content := templates.GetNotificationEmailContent(templates.NotificationEmailProps{
		Title:     title,
		Message:   message,
		ActionURL: actionURL,
	})

	subject := title
	if subject == "" {
		subject = "Notification from BallotDesk"
	}
	if err := c.send(toEmail, subject, content, message); err != nil {
		return fmt.Errorf("failed to send notification email via Resend: %w", err)
	}
	return nil
}

func (c *ResendClient) send(toEmail, subject, content, preheader string) error {
	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: preheader,
		Content:   content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	return err
}
