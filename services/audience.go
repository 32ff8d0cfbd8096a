package services

import (
	"strings"

	"coalition-api/models"
)

// Viewer is the identity an access decision is made for.
type Viewer struct {
	OrganizationID uint
	Role           models.Role
	Tags           []string
}

func ViewerFor(org *models.Organization) Viewer {
	if org == nil {
		return Viewer{}
	}
	return Viewer{OrganizationID: org.ID, Role: org.Role, Tags: org.Tags}
}

func (v Viewer) IsAdmin() bool { return v.Role == models.RoleAdmin }

// TagsIntersect reports whether the two tag sets share at least one tag.
func TagsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[normalizeTag(t)] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[normalizeTag(t)]; ok {
			return true
		}
	}
	return false
}

// Matches applies the targeting rule: an untagged item reaches everyone,
// a tagged item reaches only holders of at least one of its tags.
func Matches(itemTags, orgTags []string) bool {
	if len(itemTags) == 0 {
		return true
	}
	return TagsIntersect(itemTags, orgTags)
}

// ComputeAudience returns the organizations eligible to see or be notified
// about an item carrying itemTags. Input order is preserved.
func ComputeAudience(itemTags []string, organizations []models.Organization) []models.Organization {
	out := make([]models.Organization, 0, len(organizations))
	for _, org := range organizations {
		if Matches(itemTags, org.Tags) {
			out = append(out, org)
		}
	}
	return out
}

// CanView decides whether viewer may list or open item. Admins see
// everything; others only published items addressed to them.
func CanView(item models.Publishable, viewer Viewer) bool {
	if viewer.IsAdmin() {
		return true
	}
	if !item.IsPublished() {
		return false
	}
	return Matches(item.AudienceTags(), viewer.Tags)
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
