package phone

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"nine digits", "901234567", "+998901234567", true},
		{"nine digits with spaces", "90 123 45 67", "+998901234567", true},
		{"nine digits with punctuation", "90-123-45-67", "+998901234567", true},
		{"twelve digits with country code", "998901234567", "+998901234567", true},
		{"twelve digits formatted", "998 90 123 45 67", "+998901234567", true},
		{"already international", "+998901234567", "+998901234567", true},
		{"international with spaces", "+998 90 123 45 67", "+998901234567", true},
		{"trunk prefixed ten digits", "8901234567", "+998901234567", true},
		{"trunk prefixed formatted", "8 90 123 45 67", "+998901234567", true},
		{"too short", "12345", "", false},
		{"eight digits", "90123456", "", false},
		{"ten digits wrong leading digit", "9012345678", "", false},
		{"twelve digits wrong country code", "997901234567", "", false},
		{"eleven digits", "99890123456", "", false},
		{"thirteen digits", "9989012345678", "", false},
		{"letters only", "phone please", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Canonical output for every accepted shape is "+" followed by the country
// code and nine subscriber digits: 13 characters, 12 digits.
func TestNormalizeCanonicalShape(t *testing.T) {
	inputs := []string{"901234567", "998901234567", "+998901234567", "8901234567"}
	for _, in := range inputs {
		got, ok := Normalize(in)
		if !ok {
			t.Fatalf("Normalize(%q) unexpectedly rejected", in)
		}
		if len(got) != 13 {
			t.Errorf("Normalize(%q) = %q, want 13 characters", in, got)
		}
		if !strings.HasPrefix(got, "+"+CountryCode) {
			t.Errorf("Normalize(%q) = %q, want prefix +%s", in, got, CountryCode)
		}
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"international passes through", "+998901234567", "+998901234567", true},
		{"international with whitespace", " +998901234567 ", "+998901234567", true},
		{"foreign international passes through", "+79161234567", "+79161234567", true},
		{"bare twelve digits", "998901234567", "+998901234567", true},
		{"bare nine digits", "901234567", "+998901234567", true},
		{"garbage", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeContact(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizeContact(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("NormalizeContact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAcceptedFormatsAllNormalize(t *testing.T) {
	for _, f := range AcceptedFormats {
		if _, ok := Normalize(f); !ok {
			t.Errorf("advertised format %q does not normalize", f)
		}
	}
}
