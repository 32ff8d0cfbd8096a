package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/utils"

	"github.com/sirupsen/logrus"
)

// MemberLister supplies the organizations a notification may reach.
type MemberLister interface {
	ListActiveMembers(ctx context.Context) ([]models.Organization, error)
}

// LiveMessage is pushed to connected websocket clients.
type LiveMessage struct {
	Type      string    `json:"type"`
	Kind      string    `json:"kind"`
	ItemID    uint      `json:"itemId"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveFeed delivers msg to connected clients allowed to see an item tagged
// with tags.
type LiveFeed interface {
	Broadcast(msg LiveMessage, tags []string)
}

// Notification describes a freshly published item.
type Notification struct {
	Kind    string
	ItemID  uint
	Title   string
	Summary string
	Tags    []string
	Meta    []EmailMetaItem
	Path    string
}

type Notifier struct {
	members MemberLister
	mailer  Mailer
	live    LiveFeed
	baseURL string
	logoURL string
}

func NewNotifier(members MemberLister, mailer Mailer, live LiveFeed, baseURL string) *Notifier {
	return &Notifier{
		members: members,
		mailer:  mailer,
		live:    live,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithLogo sets the logo shown at the top of notification emails.
func (n *Notifier) WithLogo(url string) *Notifier {
	n.logoURL = url
	return n
}

// NotifyPublished emails every active member in the item's audience and
// pushes a live message. Individual send failures are only counted; an
// error is returned only when the audience cannot be resolved.
func (n *Notifier) NotifyPublished(ctx context.Context, note Notification) (FanOutResult, error) {
	ctx, cancel := detachSend(ctx, baseSendBudget)
	defer cancel()

	members, err := n.members.ListActiveMembers(ctx)
	if err != nil {
		return FanOutResult{}, fmt.Errorf("resolve audience for %s %d: %w", note.Kind, note.ItemID, err)
	}
	audience := ComputeAudience(note.Tags, members)

	label := kindLabel(note.Kind)
	subject := fmt.Sprintf("New %s: %s", strings.ToLower(label), note.Title)
	link := n.link(note.Path)

	sendCtx, cancelSend := detachSend(ctx, sendBudget(len(audience)))
	defer cancelSend()

	result := FanOut(sendCtx, n.mailer, RecipientsFromOrganizations(audience), func(r Recipient) Message {
		content := EmailContent{
			Subject: subject,
			Paragraphs: []string{
				fmt.Sprintf("Hello %s,", r.Name),
				fmt.Sprintf("A new %s has been published for your organization: <strong>%s</strong>", strings.ToLower(label), note.Title),
				note.Summary,
			},
			Meta:       note.Meta,
			ButtonText: "View " + strings.ToLower(label),
			ButtonURL:  link,
			LogoURL:    n.logoURL,
		}
		return Message{
			Subject: subject,
			HTML:    RenderEmailHTML(content),
			Text:    RenderEmailText(content),
		}
	})

	if n.live != nil {
		n.live.Broadcast(LiveMessage{
			Type:      "published",
			Kind:      note.Kind,
			ItemID:    note.ItemID,
			Title:     note.Title,
			Timestamp: time.Now(),
		}, note.Tags)
	}

	logger.WithFields(logrus.Fields{
		"kind":      note.Kind,
		"item":      note.ItemID,
		"audience":  len(audience),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("publish notification fan-out finished")

	return result, nil
}

// SendWelcome tells a newly approved organization it can sign in.
func (n *Notifier) SendWelcome(ctx context.Context, org *models.Organization) error {
	subject := "Your coalition membership has been approved"
	content := EmailContent{
		Subject: subject,
		Paragraphs: []string{
			fmt.Sprintf("Hello %s,", utils.DefaultString(org.ContactName, org.Name)),
			fmt.Sprintf("<strong>%s</strong> is now an active member of the coalition. You can sign in with %s.", org.Name, org.Email),
		},
		ButtonText: "Sign in",
		ButtonURL:  n.link("/login"),
		LogoURL:    n.logoURL,
	}
	sendCtx, cancel := detachSend(ctx, sendBudget(1))
	defer cancel()
	return n.mailer.Send(sendCtx, Message{
		To:      []string{org.Email},
		Subject: subject,
		HTML:    RenderEmailHTML(content),
		Text:    RenderEmailText(content),
	})
}

func (n *Notifier) link(path string) string {
	if n.baseURL == "" || path == "" {
		return ""
	}
	return n.baseURL + "/" + strings.TrimLeft(path, "/")
}

func kindLabel(kind string) string {
	if kind == "" {
		return "Update"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
