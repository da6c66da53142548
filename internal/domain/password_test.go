package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"valid", "S3cure#Phrase", false},
		{"empty", "", true},
		{"too short", "Ab1!xyz", true},
		{"too long", "Ab1!" + strings.Repeat("x", 130), true},
		{"no uppercase", "s3cure#phrase", true},
		{"no lowercase", "S3CURE#PHRASE", true},
		{"no digit", "Secure#Phrase", true},
		{"no special", "S3curePhrase", true},
		{"weak word", "MyPassword#1", true},
		{"repeated run", "Zzz8!good", true},
		{"pairs are fine", "Aa##Bb99x", false},
		{"digit run", "Abcdef#123456", true},
		{"keyboard walk", "Zx1!qwerty9Q", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.pw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegistration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPasswordStrength(t *testing.T) {
	assert.Equal(t, "weak", PasswordStrength("abc"))
	assert.Equal(t, "very_strong", PasswordStrength("xK9#mQ2$vL5&nR8@"))

	// Longer and more varied never scores lower.
	short := PasswordStrength("Ab1!xyzw")
	long := PasswordStrength("Ab1!xyzwAb1!xyzw")
	order := map[string]int{"weak": 0, "medium": 1, "strong": 2, "very_strong": 3}
	assert.GreaterOrEqual(t, order[long], order[short])
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("valid_user-1"))
	assert.ErrorIs(t, ValidateUsername("ab"), ErrInvalidRegistration)
	assert.ErrorIs(t, ValidateUsername(strings.Repeat("a", 51)), ErrInvalidRegistration)
	assert.ErrorIs(t, ValidateUsername("has space"), ErrInvalidRegistration)
	assert.ErrorIs(t, ValidateUsername("has@symbol"), ErrInvalidRegistration)
}

func TestValidateFullName(t *testing.T) {
	assert.NoError(t, ValidateFullName("Jo Doe"))
	assert.ErrorIs(t, ValidateFullName("x"), ErrInvalidRegistration)
	assert.ErrorIs(t, ValidateFullName(strings.Repeat("x", 101)), ErrInvalidRegistration)
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  User@Example.COM ")
	assert.NoError(t, err)
	assert.Equal(t, "user@example.com", got)

	for _, bad := range []string{"", "no-at-sign", "missing@tld", "@example.com", strings.Repeat("a", 250) + "@example.com"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidCredentials, bad)
	}
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "example.com", EmailDomain("user@example.com"))
}
