package domain

import (
	"regexp"
	"strings"
)

// MaxEmailLength is the longest accepted email address.
const MaxEmailLength = 255

// Simplified RFC 5322 pattern; full validation happens at delivery time.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims, lowercases and validates an email address.
// It returns the normalized form, or an error when the address is empty,
// too long, or does not look like an email.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidCredentials
	}
	if len(email) > MaxEmailLength {
		return "", ErrInvalidCredentials
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidCredentials
	}
	return email, nil
}

// EmailDomain returns the part after the '@'.
func EmailDomain(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	return domain
}
