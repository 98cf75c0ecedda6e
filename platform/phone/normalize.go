// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when parsing numbers lacking a country prefix.
// Webhook payloads normally arrive already in E.164; the region only
// matters for numbers pulled from the ticketing integration.
var DefaultRegion = "US"

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	normalized, err := Normalize(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return normalized
}

// Normalize formats a phone number to E.164, returning an error for
// unparseable or invalid numbers. Callers ingesting external records use
// this strict form so bad rows can be skipped instead of stored mangled.
func Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("empty phone number")
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", trimmed, err)
	}

	if !phonenumbers.IsValidNumber(number) {
		return "", fmt.Errorf("invalid phone number %q", trimmed)
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// IsE164 reports whether the input is already strictly E.164 formatted.
// Used for boundary validation of callback parameters.
func IsE164(input string) bool {
	return e164Pattern.MatchString(input)
}
