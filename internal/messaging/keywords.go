package messaging

import "strings"

// Carrier-mandated opt-out keywords. Matching is exact after trimming and
// upper-casing the whole body; "stop it" is a real message, not an opt-out.
var stopKeywords = map[string]struct{}{
	"STOP":            {},
	"STOPALL":         {},
	"STOP ALL":        {},
	"UNSUBSCRIBE":     {},
	"UNSUBSCRIBE ALL": {},
	"CANCEL":          {},
	"CANCEL ALL":      {},
	"END":             {},
	"END ALL":         {},
	"QUIT":            {},
	"QUIT ALL":        {},
}

func normalizeKeyword(body string) string {
	return strings.ToUpper(strings.TrimSpace(body))
}

// IsStopKeyword reports whether the message body is an opt-out request.
func IsStopKeyword(body string) bool {
	_, ok := stopKeywords[normalizeKeyword(body)]
	return ok
}

// IsStartKeyword reports whether the message body is an opt-in request.
func IsStartKeyword(body string) bool {
	norm := normalizeKeyword(body)
	return norm == "START" || norm == "UNSTOP"
}
