package model

import (
	"regexp"
	"strings"
	"time"
)

// Profile is the buyer identity record kept alongside the identity
// provider's user. Email is unique.
type Profile struct {
	UserID     string
	Email      string
	Name       string
	Phone      string
	DocumentID string
	CreatedAt  time.Time
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable email address.
func ValidEmail(s string) bool {
	return s != "" && emailPattern.MatchString(s)
}

// SplitName breaks a full name into first and last parts for the
// identity provider's metadata.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}

// FirstName returns the leading word of a name, used as a template
// fallback when the buyer never filled the checkout form.
func FirstName(full string) string {
	first, _ := SplitName(full)
	return first
}
