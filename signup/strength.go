package signup

import (
	"strings"
	"unicode"
)

// Strength rates a password for the strength meter
type Strength string

const (
	StrengthNone   Strength = ""
	StrengthWeak   Strength = "Weak"
	StrengthFair   Strength = "Fair"
	StrengthGood   Strength = "Good"
	StrengthStrong Strength = "Strong"
)

// PasswordStrength scores one point each for at least 8 characters, at
// least 12 characters, mixed case, a digit and a symbol.
func PasswordStrength(password string) Strength {
	if password == "" {
		return StrengthNone
	}

	var lower, upper, digit, symbol bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		default:
			symbol = true
		}
	}

	score := 0
	for _, ok := range []bool{length >= 8, length >= 12, lower && upper, digit, symbol} {
		if ok {
			score++
		}
	}

	switch {
	case score <= 2:
		return StrengthWeak
	case score == 3:
		return StrengthFair
	case score == 4:
		return StrengthGood
	default:
		return StrengthStrong
	}
}

// Class is the CSS class list of the strength indicator
func (s Strength) Class() string {
	if s == StrengthNone {
		return "password-strength"
	}
	return "password-strength " + strings.ToLower(string(s))
}
