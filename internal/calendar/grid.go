// Package calendar implements the appointment calendar: a per-date grid of
// fixed-width business-hours slots, durable snapshot storage, and atomic
// slot booking.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

const slotLayout = "15:04"

// Hours describes the bookable window for a single day.
type Hours struct {
	Start    string // inclusive, "HH:MM"
	End      string // exclusive, "HH:MM"
	Interval time.Duration
}

// DefaultHours matches the clinic's standard 10:00-16:00 day with 30-minute slots.
func DefaultHours() Hours {
	return Hours{Start: "10:00", End: "16:00", Interval: 30 * time.Minute}
}

// Validate checks that the window is well formed.
func (h Hours) Validate() error {
	start, err := time.Parse(slotLayout, h.Start)
	if err != nil {
		return fmt.Errorf("calendar: invalid start %q: %w", h.Start, err)
	}
	end, err := time.Parse(slotLayout, h.End)
	if err != nil {
		return fmt.Errorf("calendar: invalid end %q: %w", h.End, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("calendar: start %s must precede end %s", h.Start, h.End)
	}
	if h.Interval <= 0 {
		return fmt.Errorf("calendar: interval must be positive, got %s", h.Interval)
	}
	return nil
}

// SlotLabels returns the ordered slot keys for one day: Start inclusive up to
// End exclusive, stepping by Interval. Deterministic for fixed inputs.
func (h Hours) SlotLabels() ([]string, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	current, _ := time.Parse(slotLayout, h.Start)
	end, _ := time.Parse(slotLayout, h.End)

	var labels []string
	for current.Before(end) {
		labels = append(labels, current.Format(slotLayout))
		current = current.Add(h.Interval)
	}
	return labels, nil
}

// Grid maps a slot label to its occupant. A nil entry means the slot is free;
// the JSON form is {"10:00": null, "10:30": "alice", ...}.
type Grid map[string]*string

// NewGrid materializes an all-free grid for the given window.
func NewGrid(h Hours) (Grid, error) {
	labels, err := h.SlotLabels()
	if err != nil {
		return nil, err
	}
	grid := make(Grid, len(labels))
	for _, label := range labels {
		grid[label] = nil
	}
	return grid, nil
}

// Calendar maps an ISO date (YYYY-MM-DD) to that day's slot grid. This is the
// durable at-rest shape; only occupancy ever changes after a date exists.
type Calendar map[string]Grid

// EnsureDate inserts a fresh grid for date when absent. Existing occupancy is
// never regenerated. Returns whether a grid was inserted.
func (c Calendar) EnsureDate(date string, h Hours) (bool, error) {
	if _, ok := c[date]; ok {
		return false, nil
	}
	grid, err := NewGrid(h)
	if err != nil {
		return false, err
	}
	c[date] = grid
	return true, nil
}

// Appointment is a read-only (date, time, user) view derived from the calendar.
type Appointment struct {
	Date string `json:"date"`
	Time string `json:"time"`
	User string `json:"user"`
}

// AppointmentsFor scans every date and slot and returns the user's bookings
// ordered by date then time. Fixed-width labels make lexical order chronological.
func (c Calendar) AppointmentsFor(user string) []Appointment {
	var appts []Appointment
	for date, grid := range c {
		for slot, occupant := range grid {
			if occupant != nil && *occupant == user {
				appts = append(appts, Appointment{Date: date, Time: slot, User: user})
			}
		}
	}
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
	return appts
}

// Clone deep-copies the calendar so callers can hand out snapshots without
// exposing the store's working copy.
func (c Calendar) Clone() Calendar {
	out := make(Calendar, len(c))
	for date, grid := range c {
		g := make(Grid, len(grid))
		for slot, occupant := range grid {
			if occupant == nil {
				g[slot] = nil
				continue
			}
			v := *occupant
			g[slot] = &v
		}
		out[date] = g
	}
	return out
}
