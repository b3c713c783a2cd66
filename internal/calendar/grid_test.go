package calendar

import (
	"testing"
	"time"
)

func TestSlotLabelsDefaultDay(t *testing.T) {
	labels, err := DefaultHours().SlotLabels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30",
	}
	if len(labels) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(labels))
	}
	for i, label := range labels {
		if label != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], label)
		}
	}
}

func TestSlotLabelsCount(t *testing.T) {
	cases := []struct {
		start, end string
		interval   time.Duration
		want       int
	}{
		{"09:00", "17:00", 30 * time.Minute, 16},
		{"09:00", "17:00", time.Hour, 8},
		{"10:00", "10:30", 30 * time.Minute, 1},
		{"10:00", "16:00", 45 * time.Minute, 8},
	}
	for _, tc := range cases {
		labels, err := (Hours{Start: tc.start, End: tc.end, Interval: tc.interval}).SlotLabels()
		if err != nil {
			t.Fatalf("%s-%s/%s: unexpected error: %v", tc.start, tc.end, tc.interval, err)
		}
		if len(labels) != tc.want {
			t.Fatalf("%s-%s/%s: expected %d slots, got %d", tc.start, tc.end, tc.interval, tc.want, len(labels))
		}
	}
}

func TestHoursValidateRejectsBadWindows(t *testing.T) {
	cases := []Hours{
		{Start: "16:00", End: "10:00", Interval: 30 * time.Minute},
		{Start: "10:00", End: "10:00", Interval: 30 * time.Minute},
		{Start: "10:00", End: "16:00", Interval: 0},
		{Start: "10:00", End: "16:00", Interval: -time.Minute},
		{Start: "25:00", End: "26:00", Interval: 30 * time.Minute},
		{Start: "morning", End: "16:00", Interval: 30 * time.Minute},
	}
	for _, h := range cases {
		if err := h.Validate(); err == nil {
			t.Fatalf("expected error for %+v", h)
		}
	}
}

func TestEnsureDateIsIdempotent(t *testing.T) {
	cal := Calendar{}
	created, err := cal.EnsureDate("2026-09-01", DefaultHours())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create the grid")
	}

	alice := "alice"
	cal["2026-09-01"]["10:00"] = &alice

	created, err = cal.EnsureDate("2026-09-01", DefaultHours())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected second call to be a no-op")
	}
	if got := cal["2026-09-01"]["10:00"]; got == nil || *got != "alice" {
		t.Fatal("existing booking was regenerated")
	}
}

func TestAppointmentsForOrdersByDateThenTime(t *testing.T) {
	alice, bob := "alice", "bob"
	cal := Calendar{
		"2026-09-02": {"10:00": &alice, "10:30": &bob},
		"2026-09-01": {"15:30": &alice, "10:00": &alice},
	}

	appts := cal.AppointmentsFor("alice")
	if len(appts) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(appts))
	}
	want := []Appointment{
		{Date: "2026-09-01", Time: "10:00", User: "alice"},
		{Date: "2026-09-01", Time: "15:30", User: "alice"},
		{Date: "2026-09-02", Time: "10:00", User: "alice"},
	}
	for i, a := range appts {
		if a != want[i] {
			t.Fatalf("appointment %d: expected %+v, got %+v", i, want[i], a)
		}
	}

	if got := cal.AppointmentsFor("nobody"); len(got) != 0 {
		t.Fatalf("expected no appointments, got %d", len(got))
	}
}

func TestCloneIsDeep(t *testing.T) {
	alice := "alice"
	cal := Calendar{"2026-09-01": {"10:00": &alice, "10:30": nil}}

	cp := cal.Clone()
	bob := "bob"
	cp["2026-09-01"]["10:00"] = &bob
	cp["2026-09-01"]["10:30"] = &bob

	if got := cal["2026-09-01"]["10:00"]; *got != "alice" {
		t.Fatal("clone shares occupant pointers with the original")
	}
	if cal["2026-09-01"]["10:30"] != nil {
		t.Fatal("clone shares grid maps with the original")
	}
}
