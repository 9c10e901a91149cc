package auth

import "unicode"

// Strength buckets reported by PasswordStrength.
const (
	StrengthWeak   = "Weak Password"
	StrengthMedium = "Medium Password"
	StrengthStrong = "Strong Password"
)

// ValidatePassword enforces the account-creation rule: at least 8
// characters with an uppercase letter, a lowercase letter and a digit.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// PasswordStrength scores a password 0-4: length, mixed case, digits and
// symbols each earn a point. The password-change flow requires at least 3.
func PasswordStrength(password string) int {
	var score int
	if len(password) >= 8 {
		score++
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if upper && lower {
		score++
	}
	if digit {
		score++
	}
	if symbol {
		score++
	}
	return score
}

// StrengthLabel maps a PasswordStrength score to its display bucket.
func StrengthLabel(score int) string {
	switch {
	case score <= 1:
		return StrengthWeak
	case score <= 3:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}
