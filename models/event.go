package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventStatus string

const (
	EventScheduled EventStatus = "SCHEDULED"
	EventCancelled EventStatus = "CANCELLED"
)

type Event struct {
	ID           uint                        `gorm:"primaryKey;column:id" json:"id"`
	Title        string                      `gorm:"column:title;size:255;not null" json:"title"`
	Description  string                      `gorm:"column:description;type:text" json:"description"`
	Location     string                      `gorm:"column:location;size:255" json:"location"`
	StartsAt     time.Time                   `gorm:"column:starts_at;index" json:"startsAt"`
	EndsAt       *time.Time                  `gorm:"column:ends_at" json:"endsAt,omitempty"`
	MaxAttendees *int                        `gorm:"column:max_attendees" json:"maxAttendees,omitempty"`
	Tags         datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Status       EventStatus                 `gorm:"column:status;size:16;default:SCHEDULED" json:"status"`
	PublishState
	CreatedBy uint      `gorm:"column:created_by" json:"createdBy"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Event) TableName() string { return "events" }

func (e *Event) AudienceTags() []string { return e.Tags }

func (e *Event) IsCancelled() bool { return e.Status == EventCancelled }

// HasCapacity reports whether one more confirmed RSVP fits.
func (e *Event) HasCapacity(confirmed int64) bool {
	if e.MaxAttendees == nil || *e.MaxAttendees <= 0 {
		return true
	}
	return confirmed < int64(*e.MaxAttendees)
}

type RSVPStatus string

const (
	RSVPConfirmed RSVPStatus = "CONFIRMED"
	RSVPCancelled RSVPStatus = "CANCELLED"
)

// EventRSVP is an attendance registration, either from a member
// organization or from the public RSVP form (OrganizationID nil).
type EventRSVP struct {
	ID               uint          `gorm:"primaryKey;column:id" json:"id"`
	EventID          uint          `gorm:"column:event_id;not null;uniqueIndex:idx_rsvp_event_org;uniqueIndex:idx_rsvp_event_email" json:"eventId"`
	OrganizationID   *uint         `gorm:"column:organization_id;uniqueIndex:idx_rsvp_event_org" json:"organizationId,omitempty"`
	Name             string        `gorm:"column:name;size:255" json:"name"`
	Email            string        `gorm:"column:email;size:255;uniqueIndex:idx_rsvp_event_email" json:"email"`
	Attendees        int           `gorm:"column:attendees;default:1" json:"attendees"`
	Status           RSVPStatus    `gorm:"column:status;size:16;default:CONFIRMED" json:"status"`
	ConfirmationCode string        `gorm:"column:confirmation_code;size:64" json:"confirmationCode"`
	CreatedAt        time.Time     `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time     `gorm:"column:updated_at" json:"updatedAt"`
	Organization     *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (EventRSVP) TableName() string { return "event_rsvps" }
