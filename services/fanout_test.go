package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"coalition-api/models"
)

type recordingMailer struct {
	mu     sync.Mutex
	sent   []Message
	failTo map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range msg.To {
		if m.failTo[to] {
			return errors.New("smtp rejected " + to)
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		out = append(out, msg.To...)
	}
	return out
}

func TestFanOutContinuesAfterFailure(t *testing.T) {
	mailer := &recordingMailer{failTo: map[string]bool{"org2@example.org": true}}
	recipients := RecipientsFromOrganizations(testOrganizations())

	result := FanOut(context.Background(), mailer, recipients, func(r Recipient) Message {
		return Message{Subject: "Hello " + r.Name}
	})

	if result.Attempted != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].OrganizationID != 2 {
		t.Fatalf("expected failure for org2, got %#v", result.Failures)
	}
	got := mailer.recipients()
	if len(got) != 2 || got[0] != "org1@example.org" || got[1] != "org3@example.org" {
		t.Fatalf("unexpected recipients %v", got)
	}
}

func TestFanOutSkipsBlankAddresses(t *testing.T) {
	mailer := &recordingMailer{}
	result := FanOut(context.Background(), mailer, RecipientsFromEmails([]string{" ", "a@example.org"}), func(Recipient) Message {
		return Message{Subject: "s"}
	})
	if result.Attempted != 1 || result.Succeeded != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestFanOutEmptyAudience(t *testing.T) {
	mailer := &recordingMailer{}
	result := FanOut(context.Background(), mailer, RecipientsFromOrganizations([]models.Organization{}), func(Recipient) Message {
		t.Fatalf("template must not be called")
		return Message{}
	})
	if result.Attempted != 0 {
		t.Fatalf("expected no attempts, got %#v", result)
	}
}
