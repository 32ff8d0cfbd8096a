package models

import "time"

// PageContent is one editable section of a public page.
type PageContent struct {
	ID           uint      `gorm:"primaryKey;column:id" json:"id"`
	Page         string    `gorm:"column:page;size:64;not null;uniqueIndex:idx_page_section" json:"page"`
	SectionKey   string    `gorm:"column:section_key;size:128;not null;uniqueIndex:idx_page_section" json:"sectionKey"`
	ContentValue string    `gorm:"column:content_value;type:text" json:"contentValue"`
	ContentType  string    `gorm:"column:content_type;size:16;default:text" json:"contentType"`
	UpdatedBy    uint      `gorm:"column:updated_by" json:"updatedBy"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (PageContent) TableName() string { return "page_content" }

// PageSection is the public, flattened view of a PageContent row.
type PageSection struct {
	ID    uint   `json:"id"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

func ValidContentType(t string) bool {
	switch t {
	case "text", "html", "markdown", "image", "link", "json":
		return true
	}
	return false
}

// FlattenPage maps section keys to their values for the public page endpoint.
func FlattenPage(rows []PageContent) map[string]PageSection {
	out := make(map[string]PageSection, len(rows))
	for _, r := range rows {
		out[r.SectionKey] = PageSection{ID: r.ID, Value: r.ContentValue, Type: r.ContentType}
	}
	return out
}
