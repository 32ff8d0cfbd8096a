package models

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type OrganizationStatus string

const (
	OrganizationPending  OrganizationStatus = "PENDING"
	OrganizationActive   OrganizationStatus = "ACTIVE"
	OrganizationInactive OrganizationStatus = "INACTIVE"
	OrganizationRejected OrganizationStatus = "REJECTED"
)

// Organization is a coalition member (or the administering organization).
// Tags describe the organization's interests and drive audience targeting.
type Organization struct {
	ID           uint                      `gorm:"primaryKey;column:id" json:"id"`
	Name         string                    `gorm:"column:name;size:255;not null" json:"name"`
	Email        string                    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	Password     string                    `gorm:"column:password;size:255" json:"-"`
	ContactName  string                    `gorm:"column:contact_name;size:255" json:"contactName"`
	ContactPhone string                    `gorm:"column:contact_phone;size:64" json:"contactPhone"`
	Website      string                    `gorm:"column:website;size:255" json:"website"`
	Description  string                    `gorm:"column:description;type:text" json:"description"`
	Region       string                    `gorm:"column:region;size:128;index" json:"region"`
	Size         string                    `gorm:"column:size;size:32" json:"size"`
	Tags         datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Status       OrganizationStatus        `gorm:"column:status;size:16;index;default:PENDING" json:"status"`
	Role         Role                      `gorm:"column:role;size:16;default:MEMBER" json:"role"`
	ApprovedAt   *time.Time                `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	CreatedAt    time.Time                 `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time                 `gorm:"column:updated_at" json:"updatedAt"`
}

func (Organization) TableName() string { return "organizations" }

func (o *Organization) IsAdmin() bool { return o.Role == RoleAdmin }

func (o *Organization) IsActive() bool { return o.Status == OrganizationActive }

// ValidOrganizationStatus reports whether s is a known status.
func ValidOrganizationStatus(s OrganizationStatus) bool {
	switch s {
	case OrganizationPending, OrganizationActive, OrganizationInactive, OrganizationRejected:
		return true
	}
	return false
}
