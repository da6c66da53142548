package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Password policy bounds.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128

	MinUsernameLength = 3
	MaxUsernameLength = 50

	MinFullNameLength = 2
	MaxFullNameLength = 100
)

const passwordSpecialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	weakSequences = []*regexp.Regexp{
		regexp.MustCompile(`(012|123|234|345|456|567|678|789|890)`),
		regexp.MustCompile(`(abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz)`),
	}

	weakWords = []string{
		"password", "qwerty", "admin", "letmein", "welcome",
		"monkey", "dragon", "master", "superman",
	}
)

// ValidatePassword checks a plaintext password against the policy:
// 8-128 chars, at least one uppercase letter, one lowercase letter, one
// digit and one special character, and no common weak patterns.
func ValidatePassword(pw string) error {
	if pw == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidRegistration)
	}
	if len(pw) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, MinPasswordLength)
	}
	if len(pw) > MaxPasswordLength {
		return fmt.Errorf("%w: password cannot exceed %d characters", ErrInvalidRegistration, MaxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, c := range pw {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case strings.ContainsRune(passwordSpecialChars, c):
			special = true
		}
	}
	if !upper {
		return fmt.Errorf("%w: password must contain an uppercase letter", ErrInvalidRegistration)
	}
	if !lower {
		return fmt.Errorf("%w: password must contain a lowercase letter", ErrInvalidRegistration)
	}
	if !digit {
		return fmt.Errorf("%w: password must contain a digit", ErrInvalidRegistration)
	}
	if !special {
		return fmt.Errorf("%w: password must contain a special character", ErrInvalidRegistration)
	}

	lowered := strings.ToLower(pw)
	if hasRepeatedRun(lowered, 3) {
		return fmt.Errorf("%w: password contains weak patterns", ErrInvalidRegistration)
	}
	for _, re := range weakSequences {
		if re.MatchString(lowered) {
			return fmt.Errorf("%w: password contains weak patterns", ErrInvalidRegistration)
		}
	}
	for _, w := range weakWords {
		if strings.Contains(lowered, w) {
			return fmt.Errorf("%w: password contains weak patterns", ErrInvalidRegistration)
		}
	}
	return nil
}

// hasRepeatedRun reports whether any rune occurs n or more times in a
// row. RE2 has no backreferences, so this cannot be a regexp.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, c := range s {
		if c == prev {
			run++
		} else {
			prev = c
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// PasswordStrength scores a password as weak, medium, strong or
// very_strong. The tag is stored in user metadata at registration.
func PasswordStrength(pw string) string {
	score := 0
	if len(pw) >= 8 {
		score++
	}
	if len(pw) >= 12 {
		score++
	}
	if len(pw) >= 16 {
		score++
	}

	var upper, lower, digit, special bool
	unique := make(map[rune]struct{})
	for _, c := range pw {
		unique[c] = struct{}{}
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case strings.ContainsRune(passwordSpecialChars, c):
			special = true
		}
	}
	for _, ok := range []bool{upper, lower, digit, special} {
		if ok {
			score++
		}
	}
	if len(pw) > 0 && len(unique) >= len(pw)*7/10 {
		score++
	}

	switch {
	case score <= 3:
		return "weak"
	case score <= 5:
		return "medium"
	case score <= 7:
		return "strong"
	default:
		return "very_strong"
	}
}

// ValidateUsername checks the username constraints: required, 3-50 chars,
// letters, digits, underscore and hyphen only.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidRegistration)
	}
	if len(username) < MinUsernameLength {
		return fmt.Errorf("%w: username must be at least %d characters", ErrInvalidRegistration, MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username cannot exceed %d characters", ErrInvalidRegistration, MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters, numbers, underscore and hyphen", ErrInvalidRegistration)
	}
	return nil
}

// ValidateFullName checks the full name constraints: required, 2-100 chars.
func ValidateFullName(fullName string) error {
	trimmed := strings.TrimSpace(fullName)
	if trimmed == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidRegistration)
	}
	if len(trimmed) < MinFullNameLength {
		return fmt.Errorf("%w: full name must be at least %d characters", ErrInvalidRegistration, MinFullNameLength)
	}
	if len(trimmed) > MaxFullNameLength {
		return fmt.Errorf("%w: full name cannot exceed %d characters", ErrInvalidRegistration, MaxFullNameLength)
	}
	return nil
}
