package conversation

import (
	"regexp"
	"strings"
)

var (
	// ISO calendar date anywhere in the text.
	isoDateRE = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	// 24-hour clock time; rejects 24:00 and beyond outright rather than
	// rounding or reinterpreting.
	clockRE = regexp.MustCompile(`\b(?:[01]\d|2[0-3]):[0-5]\d\b`)
)

var bookingKeywords = []string{"appointment", "schedule", "book", "meeting"}

// HasBookingIntent reports whether the user's message looks like a scheduling
// request. Deliberately generous: false positives only cost a no-op extraction.
func HasBookingIntent(input string) bool {
	lowered := strings.ToLower(input)
	for _, kw := range bookingKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// ExtractDateTime pulls the first ISO date and the first valid HH:MM clock
// time out of text. Both must be present for ok to be true.
func ExtractDateTime(text string) (date, slot string, ok bool) {
	date = isoDateRE.FindString(text)
	slot = clockRE.FindString(text)
	if date == "" || slot == "" {
		return "", "", false
	}
	return date, slot, true
}
