package conversation

import "testing"

func TestExtractDateTime(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		wantDate string
		wantSlot string
		wantOK   bool
	}{
		{
			name:     "confirmation sentence",
			text:     "I've scheduled you for 2026-09-01 at 14:30. See you then!",
			wantDate: "2026-09-01",
			wantSlot: "14:30",
			wantOK:   true,
		},
		{
			name:     "first of several matches wins",
			text:     "Either 2026-09-01 at 10:00 or 2026-09-02 at 11:30 works.",
			wantDate: "2026-09-01",
			wantSlot: "10:00",
			wantOK:   true,
		},
		{
			name:   "date without time",
			text:   "How about 2026-09-01, what time suits you?",
			wantOK: false,
		},
		{
			name:   "time without date",
			text:   "We have 14:30 open tomorrow.",
			wantOK: false,
		},
		{
			name:   "hour out of range",
			text:   "Booked for 2026-09-01 at 25:00.",
			wantOK: false,
		},
		{
			name:   "minute out of range is not silently fixed",
			text:   "Booked for 2026-09-01 at 14:75.",
			wantOK: false,
		},
		{
			name:     "midnight edge",
			text:     "Confirmed 2026-09-01 at 00:00 and 23:59.",
			wantDate: "2026-09-01",
			wantSlot: "00:00",
			wantOK:   true,
		},
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			date, slot, ok := ExtractDateTime(tc.text)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if !tc.wantOK {
				return
			}
			if date != tc.wantDate || slot != tc.wantSlot {
				t.Fatalf("expected (%s, %s), got (%s, %s)", tc.wantDate, tc.wantSlot, date, slot)
			}
		})
	}
}

func TestHasBookingIntent(t *testing.T) {
	positives := []string{
		"I'd like to book an appointment",
		"Can you SCHEDULE me for Tuesday?",
		"need a meeting with Dr. Lee",
		"please book me in",
		"rebooking my appointment",
	}
	for _, input := range positives {
		if !HasBookingIntent(input) {
			t.Fatalf("expected booking intent for %q", input)
		}
	}

	negatives := []string{
		"What are your opening hours?",
		"Thanks, that's all",
		"",
	}
	for _, input := range negatives {
		if HasBookingIntent(input) {
			t.Fatalf("expected no booking intent for %q", input)
		}
	}
}
