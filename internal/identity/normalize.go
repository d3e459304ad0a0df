package identity

import (
	"regexp"
	"strings"
)

// Kind classifies an identifier string.
type Kind string

const (
	KindPhone   Kind = "phone"
	KindEmail   Kind = "email"
	KindUnknown Kind = "unknown"
)

// DefaultCountryCode is assumed for phone numbers that carry no country
// prefix of their own.
const DefaultCountryCode = "1"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Identifier is one raw phone/email value plus its canonical form.
// Immutable once created.
type Identifier struct {
	Raw        string
	Kind       Kind
	Normalized string
	Key        string
}

// Classify decides whether a raw string looks like an email, a phone
// number, or neither. Phone detection is a digit-density heuristic: more
// than half the characters must be digits.
func Classify(raw string) Kind {
	s := strings.TrimSpace(raw)
	if s == "" {
		return KindUnknown
	}
	if emailPattern.MatchString(s) {
		return KindEmail
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if float64(digits)/float64(len(s)) > 0.5 {
		return KindPhone
	}
	return KindUnknown
}

// NormalizePhone canonicalizes a phone number into a "+"-prefixed digit
// string. This is a best-effort heuristic, not E.164 validation: it never
// rejects input, and normalizing an already-canonical value is a no-op.
func NormalizePhone(raw, defaultCountry string) string {
	if defaultCountry == "" {
		defaultCountry = DefaultCountryCode
	}
	s := strings.TrimSpace(raw)
	plus := strings.HasPrefix(s, "+")

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	if plus {
		return "+" + digits
	}
	if strings.HasPrefix(digits, "00") {
		return "+" + digits[2:]
	}
	if len(digits) >= 11 && strings.HasPrefix(digits, defaultCountry) {
		return "+" + digits
	}
	return "+" + defaultCountry + digits
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Normalize builds the full Identifier for a raw value.
func Normalize(raw, defaultCountry string) Identifier {
	id := Identifier{Raw: raw, Kind: Classify(raw)}
	switch id.Kind {
	case KindPhone:
		id.Normalized = NormalizePhone(raw, defaultCountry)
	case KindEmail:
		id.Normalized = NormalizeEmail(raw)
	default:
		// Malformed input degrades to unknown and passes through unchanged
		// so the store stays total.
		id.Normalized = strings.TrimSpace(raw)
	}
	id.Key = string(id.Kind) + ":" + id.Normalized
	return id
}

// MakeKey returns the canonical type-prefixed key for a raw identifier,
// e.g. "phone:+12125551234". Empty input yields "".
func MakeKey(raw, defaultCountry string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return Normalize(raw, defaultCountry).Key
}

// digitsOf strips everything but digits. Used by the fuzzy matcher for
// suffix comparison.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
