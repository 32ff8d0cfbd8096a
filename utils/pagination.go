package utils

import (
	"strconv"
	"strings"

	"coalition-api/models"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParsePageRequest reads page/limit query values, falling back to defaults
// for missing or out-of-range input.
func ParsePageRequest(pageStr, limitStr string) models.PageRequest {
	page := 1
	limit := DefaultPageLimit
	if v, err := strconv.Atoi(strings.TrimSpace(pageStr)); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(limitStr)); err == nil && v > 0 {
		limit = v
		if limit > MaxPageLimit {
			limit = MaxPageLimit
		}
	}
	return models.PageRequest{Page: page, Limit: limit}
}
