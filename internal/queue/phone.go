package queue

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for phone numbers rejected by the
// configured policy.
var ErrInvalidPhone = errors.New("invalid phone number")

// PhonePolicy validates a client phone number. Deployments disagree on
// the format (minimum-length vs strict national prefix), so the rule is
// injected rather than fixed.
type PhonePolicy func(phone string) error

// LenientPhonePolicy accepts any number with at least ten digits,
// ignoring a leading plus and separator characters.
func LenientPhonePolicy(phone string) error {
	digits := 0
	for _, r := range strings.TrimPrefix(phone, "+") {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
		default:
			return ErrInvalidPhone
		}
	}
	if digits < 10 {
		return ErrInvalidPhone
	}
	return nil
}

// RwandaPhonePolicy requires the +250 prefix followed by exactly nine
// digits.
func RwandaPhonePolicy(phone string) error {
	if !strings.HasPrefix(phone, "+250") || len(phone) != 13 {
		return ErrInvalidPhone
	}
	for _, r := range phone[4:] {
		if r < '0' || r > '9' {
			return ErrInvalidPhone
		}
	}
	return nil
}

// PolicyByName resolves a configured policy name, defaulting to the
// lenient rule for unknown values.
func PolicyByName(name string) PhonePolicy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rwanda", "strict":
		return RwandaPhonePolicy
	default:
		return LenientPhonePolicy
	}
}
