package services

import (
	"context"
	"strings"

	"coalition-api/models"

	"github.com/sirupsen/logrus"
)

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Recipient is the addressee of one fan-out send.
type Recipient struct {
	OrganizationID uint
	Name           string
	Email          string
}

func RecipientsFromOrganizations(orgs []models.Organization) []Recipient {
	out := make([]Recipient, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, Recipient{OrganizationID: org.ID, Name: org.Name, Email: org.Email})
	}
	return out
}

func RecipientsFromEmails(emails []string) []Recipient {
	out := make([]Recipient, 0, len(emails))
	for _, e := range emails {
		out = append(out, Recipient{Email: e})
	}
	return out
}

// TemplateFunc builds the recipient specific message. An empty To list is
// filled with the recipient's address.
type TemplateFunc func(r Recipient) Message

type SendFailure struct {
	OrganizationID uint   `json:"organizationId,omitempty"`
	Email          string `json:"email"`
	Error          string `json:"error"`
}

type FanOutResult struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []SendFailure `json:"-"`
}

// FanOut sends one message per recipient. A failed send is recorded and
// logged; it never stops the remaining sends.
func FanOut(ctx context.Context, mailer Mailer, recipients []Recipient, build TemplateFunc) FanOutResult {
	var result FanOutResult
	for _, r := range recipients {
		email := strings.TrimSpace(r.Email)
		if email == "" {
			continue
		}
		r.Email = email

		msg := build(r)
		if len(msg.To) == 0 {
			msg.To = []string{email}
		}

		result.Attempted++
		if err := mailer.Send(ctx, msg); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, SendFailure{
				OrganizationID: r.OrganizationID,
				Email:          email,
				Error:          err.Error(),
			})
			logger.WithFields(logrus.Fields{
				"email":        email,
				"organization": r.OrganizationID,
				"subject":      msg.Subject,
			}).WithError(err).Warn("notification send failed")
			continue
		}
		result.Succeeded++
	}
	return result
}
