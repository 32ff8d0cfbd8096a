// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"sort"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword checks password strength
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}

	return true, ""
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

// NormalizeTags trims, lower-cases and de-duplicates tags, dropping empty
// entries. The result is sorted and never nil.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(SanitizeInput(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeEmails lower-cases and de-duplicates addresses, preserving order.
// Invalid addresses are returned separately.
func NormalizeEmails(emails []string) (valid []string, invalid []string) {
	seen := make(map[string]bool, len(emails))
	valid = make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(SanitizeInput(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		if !ValidateEmail(e) {
			invalid = append(invalid, e)
			continue
		}
		valid = append(valid, e)
	}
	return valid, invalid
}

// DefaultString returns fallback when value is blank.
func DefaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
