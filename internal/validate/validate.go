// Package validate normalizes and checks the customer and address fields
// that are forwarded to the parcel carrier.
//
// Every function is pure: it either returns the normalized value or a
// *FieldError describing why the raw value was rejected.
package validate

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCountry is assumed by PhoneNumber when no country is given.
const DefaultCountry = "FR"

// MaxPhoneLength is the longest telephone value the carrier accepts.
const MaxPhoneLength = 35

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
	e164Pattern    = regexp.MustCompile(`^\+\d{9,15}$`)
	nineDigits     = regexp.MustCompile(`^\d{9}$`)
	postalStrip    = regexp.MustCompile(`[\s-]`)
	phoneStrip     = regexp.MustCompile(`[\s\-()]`)
)

// postalPatterns holds the carrier's postal code formats, written without spaces.
var postalPatterns = map[string]*regexp.Regexp{
	"FR": regexp.MustCompile(`^\d{5}$`),                        // 75001
	"BE": regexp.MustCompile(`^\d{4}$`),                        // 1000
	"DE": regexp.MustCompile(`^\d{5}$`),                        // 12345
	"NL": regexp.MustCompile(`^\d{4}[A-Z]{2}$`),                // 1234AB
	"GB": regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`), // SW1A1AA
}

// SanitizeText trims surrounding whitespace and truncates the result to
// maxLength characters. A maxLength of zero or less disables truncation.
func SanitizeText(input string, maxLength int) string {
	s := strings.TrimSpace(input)
	if maxLength > 0 {
		if r := []rune(s); len(r) > maxLength {
			s = string(r[:maxLength])
		}
	}
	return s
}

// Email lower-cases and trims an address and checks it has a local@domain.tld shape.
func Email(input string) (string, error) {
	email := strings.ToLower(SanitizeText(input, 0))
	if email == "" || !emailPattern.MatchString(email) {
		return "", newFieldError(KindInvalidFormat, input, "invalid email format: %q", input)
	}
	return email, nil
}

// CountryCode normalizes a two-letter ISO 3166-1 alpha-2 code.
func CountryCode(input string) (string, error) {
	cc := strings.ToUpper(SanitizeText(input, 2))
	if !countryPattern.MatchString(cc) {
		return "", newFieldError(KindInvalidFormat, input,
			"invalid country code: %q (sanitized: %q), expected 2-letter ISO code", input, cc)
	}
	return cc, nil
}

// PostalCode strips spaces and hyphens, upper-cases the code and checks it
// against the pattern for countryCode. Countries without a known pattern only
// get a 2-10 character length check.
func PostalCode(input, countryCode string) (string, error) {
	raw := SanitizeText(input, 0)
	if raw == "" {
		return "", newFieldError(KindRequired, input, "postal code is required")
	}

	cleaned := strings.ToUpper(postalStrip.ReplaceAllString(raw, ""))
	cc := strings.ToUpper(countryCode)

	if pattern, ok := postalPatterns[cc]; ok {
		if !pattern.MatchString(cleaned) {
			return "", newFieldError(KindPatternMismatch, input,
				"postal code %q invalid for country %s, expected pattern %s", raw, cc, pattern.String())
		}
		return cleaned, nil
	}

	if n := len([]rune(cleaned)); n < 2 || n > 10 {
		return "", newFieldError(KindLengthInvalid, input,
			"postal code %q length invalid for country %s (2-10 chars)", raw, cc)
	}
	return cleaned, nil
}

// PhoneNumber normalizes a telephone number towards E.164. It never fails:
// numbers that still do not look like E.164 are logged and passed through,
// because the carrier accepts some of them. An empty input yields "".
func PhoneNumber(input, countryCode string) string {
	if input == "" {
		return ""
	}
	if countryCode == "" {
		countryCode = DefaultCountry
	}

	phone := phoneStrip.ReplaceAllString(strings.TrimSpace(input), "")

	switch strings.ToUpper(countryCode) {
	case "FR":
		if strings.HasPrefix(phone, "0") {
			phone = "+33" + phone[1:]
		} else if !strings.HasPrefix(phone, "+33") && nineDigits.MatchString(phone) {
			phone = "+33" + phone
		}
	}

	if !LooksE164(phone) {
		slog.Default().Warn("phone number may not be in E.164 format",
			"input", input,
			"processed", phone,
			"country", countryCode,
		)
	}

	return SanitizeText(phone, MaxPhoneLength)
}

// LooksE164 reports whether phone has the loose +<9-15 digits> shape.
func LooksE164(phone string) bool {
	return e164Pattern.MatchString(phone)
}

// ServicePointID parses a pickup point identifier, which must be a positive integer.
func ServicePointID(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, newFieldError(KindRequired, input, "service point ID is required")
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, newFieldError(KindInvalidFormat, input,
			"invalid service point ID: %q, must be a positive integer", input)
	}
	return id, nil
}
