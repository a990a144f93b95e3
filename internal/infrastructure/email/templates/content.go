// Package templates provides email content builders
package templates

import (
	"fmt"
	"strings"
	"time"
)

type VoterKeyEmailProps struct {
	Name          string
	ElectionTitle string
	VoterKey      string
	BallotURL     string
}

// GetVoterKeyEmailContent composes the body of the credential issuance email.
func GetVoterKeyEmailContent(props VoterKeyEmailProps) string {
	name := props.Name
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	b.WriteString(GetHeading("Your voting credential"))
	b.WriteString(GetParagraph(fmt.Sprintf("Hi %s,", name)))
	b.WriteString(GetParagraph(fmt.Sprintf("You are registered to vote in %q. Use the credential below to verify your identity when casting your ballot.", props.ElectionTitle)))
	b.WriteString(GetCodeBox(props.VoterKey))
	if props.BallotURL != "" {
		b.WriteString(GetButton(ButtonProps{Text: "Open your ballot", URL: props.BallotURL}))
	}
	b.WriteString(GetParagraph("Keep this credential private. Election staff will never ask you for it."))
	return b.String()
}

type ReminderEmailProps struct {
	Name          string
	ElectionTitle string
	EndTime       time.Time
	BallotURL     string
}

// GetReminderEmailContent composes the body of the vote-before-it-closes reminder.
func GetReminderEmailContent(props ReminderEmailProps) string {
	name := props.Name
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	b.WriteString(GetHeading("Your election is closing soon"))
	b.WriteString(GetParagraph(fmt.Sprintf("Hi %s,", name)))
	b.WriteString(GetParagraph(fmt.Sprintf("Voting in %q closes %s. Our records show you have not cast your ballot yet.", props.ElectionTitle, props.EndTime.Format("Monday, January 2 at 3:04 PM MST"))))
	if props.BallotURL != "" {
		b.WriteString(GetButton(ButtonProps{Text: "Vote now", URL: props.BallotURL}))
	}
	b.WriteString(GetParagraph("If you have already voted, you can disregard this message."))
	return b.String()
}

type NotificationEmailProps struct {
	Title      string
	Message    string
	ActionURL  string
	ActionText string
}

// GetNotificationEmailContent renders a generic notification as an email body.
func GetNotificationEmailContent(props NotificationEmailProps) string {
	var b strings.Builder
	if props.Title != "" {
		b.WriteString(GetHeading(props.Title))
	}
	b.WriteString(GetParagraph(props.Message))
	if props.ActionURL != "" {
		text := props.ActionText
		if text == "" {
			text = "View details"
		}
		b.WriteString(GetButton(ButtonProps{Text: text, URL: props.ActionURL}))
	}
	return b.String()
}
