package phone

import "strings"

// Normalizer converts heterogeneous phone representations into E.164 format
// for one home region. It is pure: no network lookups, no carrier checks —
// if a number cannot be formatted deterministically it is rejected, never
// guessed.
type Normalizer struct {
	// CountryCode is the home-region dialling code without the plus, e.g. "61".
	CountryCode string
	// SubscriberDigits is the expected bare subscriber number length for the
	// home region (9 for Australia: mobile 4xx xxx xxx).
	SubscriberDigits int
}

// NewNormalizer builds a Normalizer for the given home country code.
func NewNormalizer(countryCode string) Normalizer {
	return Normalizer{CountryCode: countryCode, SubscriberDigits: 9}
}

// NormalizeParts formats a structured phone representation (separate country
// code, area code and number fields, any of which may be empty). Returns ""
// when no usable number can be built.
func (n Normalizer) NormalizeParts(countryCode, areaCode, number string) string {
	number = digitsOnly(number)
	if number == "" {
		return ""
	}

	cc := digitsOnly(countryCode)
	if cc == "" {
		cc = n.CountryCode
	}

	area := digitsOnly(areaCode)
	// A leading trunk zero on the area code is dropped in international format.
	area = strings.TrimPrefix(area, "0")

	return "+" + cc + area + number
}

// Normalize formats a free-text phone string as E.164 or returns "" when the
// input cannot be interpreted without guessing.
func (n Normalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Already international; trust the caller.
	if strings.HasPrefix(raw, "+") {
		return raw
	}

	digits := digitsOnly(raw)
	if digits == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(digits, n.CountryCode):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		// National trunk prefix: 0400 803 880 -> +61400803880.
		return "+" + n.CountryCode + digits[1:]
	case len(digits) == n.SubscriberDigits:
		return "+" + n.CountryCode + digits
	default:
		return ""
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
