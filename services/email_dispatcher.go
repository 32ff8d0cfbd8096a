package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coalition-api/models"

	"github.com/sirupsen/logrus"
)

// EmailDispatchLock names the advisory lock held while due emails are sent.
const EmailDispatchLock = "email_dispatch_job"

// EmailStore is the slice of email history persistence the dispatcher uses.
type EmailStore interface {
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]models.EmailHistory, error)
	Claim(ctx context.Context, id uint) (bool, error)
	Update(ctx context.Context, h *models.EmailHistory) error
}

type DispatchReport struct {
	StartedAt time.Time `json:"startedAt"`
	Due       int       `json:"due"`
	Claimed   int       `json:"claimed"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	DryRun    bool      `json:"dryRun"`
	Error     string    `json:"error,omitempty"`
}

// EmailDispatcher delivers custom emails, both immediately and when their
// scheduled time comes due.
type EmailDispatcher struct {
	store   EmailStore
	mailer  Mailer
	logoURL string

	// Limit caps rows handled per DispatchDue call; zero means no cap.
	Limit  int
	DryRun bool

	mu      sync.Mutex
	lastRun *DispatchReport
}

func NewEmailDispatcher(store EmailStore, mailer Mailer) *EmailDispatcher {
	return &EmailDispatcher{store: store, mailer: mailer}
}

func (d *EmailDispatcher) WithLogo(url string) *EmailDispatcher {
	d.logoURL = url
	return d
}

// Deliver sends h to each of its recipients and records the outcome on h.
// The caller persists h.
func (d *EmailDispatcher) Deliver(ctx context.Context, h *models.EmailHistory, now time.Time) FanOutResult {
	content := EmailContent{
		Subject:    h.Subject,
		Paragraphs: SplitParagraphs(h.Body),
		LogoURL:    d.logoURL,
	}
	html := RenderEmailHTML(content)
	text := RenderEmailText(content)

	sendCtx, cancel := detachSend(ctx, sendBudget(len(h.Recipients)))
	defer cancel()

	result := FanOut(sendCtx, d.mailer, RecipientsFromEmails(h.Recipients), func(Recipient) Message {
		return Message{Subject: h.Subject, HTML: html, Text: text}
	})

	h.SentCount = result.Succeeded
	h.FailedCount = result.Failed
	h.SentAt = &now
	if result.Succeeded > 0 {
		h.Status = models.EmailSent
	} else {
		h.Status = models.EmailFailed
	}
	return result
}

// DispatchDue sends every SCHEDULED email whose time has come. Rows are
// claimed first so concurrent dispatchers never send the same email twice.
func (d *EmailDispatcher) DispatchDue(ctx context.Context, now time.Time) (DispatchReport, error) {
	report := DispatchReport{StartedAt: now, DryRun: d.DryRun}
	defer func() { d.record(report) }()

	due, err := d.store.DueScheduled(ctx, now, d.Limit)
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("load due emails: %w", err)
	}
	report.Due = len(due)
	if d.DryRun {
		for _, h := range due {
			logger.WithFields(logrus.Fields{
				"email":      h.ID,
				"recipients": len(h.Recipients),
				"scheduled":  h.ScheduledFor,
			}).Info("dry run: email due")
		}
		return report, nil
	}

	for i := range due {
		if err := ctx.Err(); err != nil {
			report.Error = err.Error()
			return report, err
		}
		h := &due[i]

		ok, err := d.store.Claim(ctx, h.ID)
		if err != nil {
			logger.WithError(err).WithField("email", h.ID).Error("claim scheduled email failed")
			continue
		}
		if !ok {
			continue
		}
		report.Claimed++

		result := d.Deliver(ctx, h, now)
		saveCtx, cancelSave := detachSend(ctx, baseSendBudget)
		if err := d.store.Update(saveCtx, h); err != nil {
			logger.WithError(err).WithField("email", h.ID).Error("record scheduled email outcome failed")
		}
		cancelSave()
		if h.Status == models.EmailSent {
			report.Sent++
		} else {
			report.Failed++
		}

		logger.WithFields(logrus.Fields{
			"email":     h.ID,
			"status":    h.Status,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		}).Info("scheduled email dispatched")
	}
	return report, nil
}

// LastRun returns the most recent DispatchDue report, if any.
func (d *EmailDispatcher) LastRun() *DispatchReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastRun == nil {
		return nil
	}
	r := *d.lastRun
	return &r
}

func (d *EmailDispatcher) record(r DispatchReport) {
	d.mu.Lock()
	d.lastRun = &r
	d.mu.Unlock()
}
