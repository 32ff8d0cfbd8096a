// models/announcement.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Announcement is news published to members (or a tagged subset of them).
type Announcement struct {
	ID      uint                        `gorm:"primaryKey;column:announcement_id" json:"id"`
	Title   string                      `gorm:"column:title;size:255;not null" json:"title"`
	Summary string                      `gorm:"column:summary;size:512" json:"summary"`
	Content string                      `gorm:"column:content;type:text;not null" json:"content"`
	Tags    datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Pinned  bool                        `gorm:"column:pinned" json:"pinned"`
	PublishState
	CreatedBy uint      `gorm:"column:created_by" json:"createdBy"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Announcement) TableName() string { return "announcements" }

func (a *Announcement) AudienceTags() []string { return a.Tags }
