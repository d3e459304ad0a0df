package identity

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
	}{
		{"john@example.com", KindEmail},
		{"J.Smith+tag@Sub.Example.ORG", KindEmail},
		{"+1 (212) 555-1234", KindPhone},
		{"5551234567", KindPhone},
		{"00442079460958", KindPhone},
		{"john smith", KindUnknown},
		{"", KindUnknown},
		{"@example.com", KindUnknown},
		{"not an email@", KindUnknown},
	}

	for _, test := range tests {
		if got := Classify(test.input); got != test.expected {
			t.Errorf("Classify(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		country  string
		expected string
	}{
		{"+1 (212) 555-1234", "1", "+12125551234"},
		{"(212) 555-1234", "1", "+12125551234"},
		{"212-555-1234", "1", "+12125551234"},
		{"212.555.1234", "1", "+12125551234"},
		{"12125551234", "1", "+12125551234"},  // 11 digits starting with country code
		{"00442079460958", "1", "+442079460958"}, // international 00 prefix
		{"5551234", "1", "+15551234"},            // short local number
		{"+861012345678", "1", "+861012345678"},  // explicit + preserved as-is
		{"12345678901", "44", "+4412345678901"},  // 11 digits, wrong country prefix
		{"", "1", ""},
		{"abc", "1", ""},
	}

	for _, test := range tests {
		if got := NormalizePhone(test.input, test.country); got != test.expected {
			t.Errorf("NormalizePhone(%q, %q) = %q, expected %q", test.input, test.country, got, test.expected)
		}
	}
}

// Punctuation and spacing variants of the same number must collapse to one
// canonical form.
func TestNormalizePhonePunctuationEquivalence(t *testing.T) {
	variants := []string{
		"+1 (555) 123-4567",
		"+1 555 123 4567",
		"+1-555-123-4567",
		"+15551234567",
	}
	want := "+15551234567"
	for _, v := range variants {
		if got := NormalizePhone(v, "1"); got != want {
			t.Errorf("NormalizePhone(%q) = %q, expected %q", v, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"+1 (212) 555-1234",
		"5551234567",
		"John.Smith@Example.COM",
		"not a number",
	}
	for _, in := range inputs {
		once := Normalize(in, "1")
		twice := Normalize(once.Normalized, "1")
		if twice.Normalized != once.Normalized {
			t.Errorf("normalize not idempotent for %q: %q != %q", in, twice.Normalized, once.Normalized)
		}
		if twice.Key != once.Key {
			t.Errorf("key not stable for %q: %q != %q", in, twice.Key, once.Key)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  John.Smith@Example.COM  "); got != "john.smith@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestMakeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"+1 (212) 555-1234", "phone:+12125551234"},
		{"John@Example.com", "email:john@example.com"},
		{"some note", "unknown:some note"},
		{"", ""},
		{"   ", ""},
	}
	for _, test := range tests {
		if got := MakeKey(test.input, "1"); got != test.expected {
			t.Errorf("MakeKey(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestMatchScore(t *testing.T) {
	norm := func(raw string) Identifier { return Normalize(raw, "1") }

	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"exact key", "+12125551234", "+1 (212) 555-1234", 1},
		{"last 10 digits", "020 7946 0958", "+442079460958", ScoreFullMatch},
		{"last 7 only", "555-1234", "+19995551234", ScoreLocalMatch},
		{"different suffixes", "+12125551234", "+12125559999", 0},
		{"phone vs email", "+12125551234", "2125551234@example.com", 0},
		{"emails never partial", "john@example.com", "john@example.org", 0},
	}

	for _, test := range tests {
		if got := matchScore(norm(test.a), norm(test.b)); got != test.expected {
			t.Errorf("%s: matchScore(%q, %q) = %v, expected %v", test.name, test.a, test.b, got, test.expected)
		}
	}
}
