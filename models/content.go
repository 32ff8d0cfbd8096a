package models

import (
	"fmt"
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multipleChoice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionText           QuestionType = "text"
	QuestionRating         QuestionType = "rating"
)

// Question is one entry of the schema embedded on alerts and surveys.
type Question struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Min      *float64     `json:"min,omitempty"`
	Max      *float64     `json:"max,omitempty"`
}

func (q Question) IsChoice() bool {
	return q.Type == QuestionMultipleChoice || q.Type == QuestionCheckbox
}

// RatingBounds returns the configured bounds, defaulting to 1..5.
func (q Question) RatingBounds() (float64, float64) {
	lo, hi := 1.0, 5.0
	if q.Min != nil {
		lo = *q.Min
	}
	if q.Max != nil {
		hi = *q.Max
	}
	return lo, hi
}

// ValidateQuestions checks a question schema before it is stored.
func ValidateQuestions(questions []Question) error {
	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return fmt.Errorf("question %d is missing an id", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate question id %q", id)
		}
		seen[id] = true

		switch q.Type {
		case QuestionMultipleChoice, QuestionCheckbox:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %q requires options", id)
			}
		case QuestionText:
		case QuestionRating:
			lo, hi := q.RatingBounds()
			if lo >= hi {
				return fmt.Errorf("question %q has invalid rating bounds", id)
			}
		default:
			return fmt.Errorf("question %q has unknown type %q", id, q.Type)
		}
	}
	return nil
}

// Publishable is implemented by every content item that moves from draft to
// published and carries audience tags.
type Publishable interface {
	AudienceTags() []string
	IsPublished() bool
}

// PublishState is embedded by alerts, announcements, events and surveys.
type PublishState struct {
	Published   bool       `gorm:"column:is_published;index" json:"isPublished"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"publishedAt,omitempty"`
	NotifiedAt  *time.Time `gorm:"column:notified_at" json:"-"`
}

func (p *PublishState) IsPublished() bool { return p.Published }

// MarkPublished flips the item to published. It reports whether this call
// performed the draft -> published transition.
func (p *PublishState) MarkPublished(now time.Time) bool {
	if p.Published {
		return false
	}
	p.Published = true
	p.PublishedAt = &now
	return true
}

func (p *PublishState) MarkUnpublished() bool {
	if !p.Published {
		return false
	}
	p.Published = false
	return true
}

// NeedsNotification is true for published items whose audience has not been
// notified yet.
func (p *PublishState) NeedsNotification() bool {
	return p.Published && p.NotifiedAt == nil
}

func (p *PublishState) MarkNotified(now time.Time) { p.NotifiedAt = &now }
