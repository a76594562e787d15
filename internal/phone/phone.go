// Package phone normalizes Uzbek phone numbers into canonical international
// form. Functions here are pure: no session state, no I/O.
package phone

import "strings"

// CountryCode is the calling code for the local numbering plan.
const CountryCode = "998"

// trunkPrefix is the domestic long-distance prefix digit. Numbers written
// as 8XXXXXXXXX get the trunk digit dropped and the country code prefixed.
const trunkPrefix = '8'

// subscriberDigits is the number of digits after the country code.
const subscriberDigits = 9

// AcceptedFormats lists the input shapes the normalizer understands. It is
// shown to users when a phone number is rejected.
var AcceptedFormats = []string{
	"901234567",
	"998901234567",
	"+998901234567",
	"8901234567",
}

// Normalize converts free-form text into the canonical +998XXXXXXXXX form.
// It reports false when the text matches none of the accepted shapes.
func Normalize(raw string) (string, bool) {
	digits := stripNonDigits(raw)
	switch {
	case len(digits) == subscriberDigits:
		return "+" + CountryCode + digits, true
	case len(digits) == subscriberDigits+len(CountryCode) && strings.HasPrefix(digits, CountryCode):
		return "+" + digits, true
	case len(digits) == subscriberDigits+1 && digits[0] == trunkPrefix:
		return "+" + CountryCode + digits[1:], true
	default:
		return "", false
	}
}

// NormalizeContact canonicalizes a phone number obtained from the
// transport's contact-sharing feature. Contact payloads are trusted: a
// number that already carries a leading + passes through unchanged;
// otherwise its digits go through the free-text rules.
func NormalizeContact(number string) (string, bool) {
	trimmed := strings.TrimSpace(number)
	if strings.HasPrefix(trimmed, "+") {
		return trimmed, true
	}
	return Normalize(trimmed)
}

func stripNonDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
