package calendar

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

var calendarTracer = otel.Tracer("medassist.internal.calendar")

// Booking outcomes. These are domain results, not errors: callers surface the
// message to the user and move on.
const (
	OutcomeBooked      = "booked"
	OutcomeInvalidSlot = "invalid_slot"
	OutcomeSlotTaken   = "slot_taken"
	// OutcomeUnconfirmed means the shared-store conditional write errored:
	// no reservation is held anywhere and the user must retry.
	OutcomeUnconfirmed = "unconfirmed"
)

// BookingResult reports one check-and-book attempt.
type BookingResult struct {
	Outcome   string
	Date      string
	Time      string
	Message   string
	Persisted bool // false when the snapshot write failed after booking
}

// Booked reports whether the slot was reserved for the caller.
func (r BookingResult) Booked() bool { return r.Outcome == OutcomeBooked }

// ConditionalBooker is an optional Store capability: a storage-level
// conditional write that reserves a slot atomically across processes.
// Used via type assertion so snapshot stores need not implement it.
type ConditionalBooker interface {
	TryBook(ctx context.Context, user, date, slot string) (bool, error)
}

// DateMaterializer is the companion capability for inserting a date's
// slot rows without touching existing occupancy.
type DateMaterializer interface {
	MaterializeDate(ctx context.Context, date string, labels []string) error
}

// Allocator owns the calendar's read-modify-write cycle. All bookings funnel
// through one mutex-guarded critical section so that of two racing attempts
// for the same slot exactly one succeeds.
type Allocator struct {
	store   Store
	cas     ConditionalBooker
	hours   Hours
	logger  *logging.Logger
	metrics *metrics.BookingMetrics

	mu     sync.Mutex
	cal    Calendar // working copy, lazily loaded; nil until first use
	loaded bool
}

// NewAllocator builds an allocator over the given store. When the store also
// implements ConditionalBooker, bookings use the storage-level conditional
// write instead of the in-process snapshot.
func NewAllocator(store Store, hours Hours, logger *logging.Logger, m *metrics.BookingMetrics) (*Allocator, error) {
	if store == nil {
		panic("calendar: store required")
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Allocator{store: store, hours: hours, logger: logger, metrics: m}
	if cas, ok := store.(ConditionalBooker); ok {
		a.cas = cas
	}
	return a, nil
}

// Hours returns the configured business-hours window.
func (a *Allocator) Hours() Hours { return a.hours }

// BookSlot atomically checks and reserves (date, slot) for user. Slot validity
// and occupancy conflicts come back as outcomes; only the booked outcome
// mutates state. A failed snapshot write is reported via Persisted=false, the
// in-memory calendar remains authoritative for the rest of the process.
func (a *Allocator) BookSlot(ctx context.Context, user, date, slot string) BookingResult {
	ctx, span := calendarTracer.Start(ctx, "calendar.book_slot")
	defer span.End()
	span.SetAttributes(
		attribute.String("medassist.booking.date", date),
		attribute.String("medassist.booking.slot", slot),
	)

	a.mu.Lock()
	defer a.mu.Unlock()

	var result BookingResult
	if a.cas != nil {
		result = a.bookConditional(ctx, user, date, slot)
	} else {
		result = a.bookSnapshot(ctx, user, date, slot)
	}

	span.SetAttributes(attribute.String("medassist.booking.outcome", result.Outcome))
	a.metrics.ObserveAttempt(result.Outcome)
	a.logger.Info("booking attempt",
		"user", user,
		"date", date,
		"slot", slot,
		"outcome", result.Outcome,
		"persisted", result.Persisted,
	)
	return result
}

func (a *Allocator) bookSnapshot(ctx context.Context, user, date, slot string) BookingResult {
	a.ensureLoaded(ctx)

	if _, err := a.cal.EnsureDate(date, a.hours); err != nil {
		// Hours were validated at construction; this only fires on misuse.
		return a.invalidSlot(date, slot)
	}

	grid := a.cal[date]
	occupant, valid := grid[slot]
	if !valid {
		return a.invalidSlot(date, slot)
	}
	if occupant != nil {
		return BookingResult{
			Outcome: OutcomeSlotTaken,
			Date:    date,
			Time:    slot,
			Message: fmt.Sprintf("Sorry, %s on %s is already taken.", slot, date),
		}
	}

	u := user
	grid[slot] = &u

	result := BookingResult{
		Outcome:   OutcomeBooked,
		Date:      date,
		Time:      slot,
		Message:   fmt.Sprintf("Appointment booked on %s at %s.", date, slot),
		Persisted: true,
	}
	if err := a.store.Save(ctx, a.cal); err != nil {
		a.metrics.ObservePersistFailure()
		a.logger.Warn("calendar snapshot write failed; booking held in memory only",
			"date", date, "slot", slot, "error", err)
		result.Persisted = false
		result.Message += " Note: the calendar could not be saved, so this booking may not persist."
	}
	return result
}

func (a *Allocator) bookConditional(ctx context.Context, user, date, slot string) BookingResult {
	labels, err := a.hours.SlotLabels()
	if err != nil {
		return a.invalidSlot(date, slot)
	}
	validSlot := false
	for _, label := range labels {
		if label == slot {
			validSlot = true
			break
		}
	}
	if !validSlot {
		return a.invalidSlot(date, slot)
	}

	if mat, ok := a.store.(DateMaterializer); ok {
		if err := mat.MaterializeDate(ctx, date, labels); err != nil {
			a.logger.Warn("failed to materialize date rows", "date", date, "error", err)
		}
	}

	booked, err := a.cas.TryBook(ctx, user, date, slot)
	if err != nil {
		// Unlike the snapshot path there is no in-memory copy holding the
		// reservation, so a failed write means no booking exists at all.
		a.metrics.ObservePersistFailure()
		a.logger.Warn("conditional booking write failed", "date", date, "slot", slot, "error", err)
		return BookingResult{
			Outcome: OutcomeUnconfirmed,
			Date:    date,
			Time:    slot,
			Message: fmt.Sprintf("Sorry, the calendar could not be reached to book %s on %s. Please try again in a moment.", slot, date),
		}
	}
	if !booked {
		return BookingResult{
			Outcome: OutcomeSlotTaken,
			Date:    date,
			Time:    slot,
			Message: fmt.Sprintf("Sorry, %s on %s is already taken.", slot, date),
		}
	}
	return BookingResult{
		Outcome:   OutcomeBooked,
		Date:      date,
		Time:      slot,
		Message:   fmt.Sprintf("Appointment booked on %s at %s.", date, slot),
		Persisted: true,
	}
}

func (a *Allocator) invalidSlot(date, slot string) BookingResult {
	return BookingResult{
		Outcome: OutcomeInvalidSlot,
		Date:    date,
		Time:    slot,
		Message: fmt.Sprintf("Sorry, %s is not a bookable time. Hours are %s-%s in %d-minute slots.",
			slot, a.hours.Start, a.hours.End, int(a.hours.Interval.Minutes())),
	}
}

// ListAppointments returns the user's booked (date, time) pairs in ascending
// order. Storage read failures degrade to an empty calendar.
func (a *Allocator) ListAppointments(ctx context.Context, user string) []Appointment {
	ctx, span := calendarTracer.Start(ctx, "calendar.list_appointments")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cas != nil {
		// Shared-store deployments read fresh so bookings from other
		// instances are visible.
		cal, err := a.store.Load(ctx)
		if err != nil {
			a.logger.Warn("calendar load failed; treating as empty", "error", err)
			return nil
		}
		return cal.AppointmentsFor(user)
	}

	a.ensureLoaded(ctx)
	return a.cal.AppointmentsFor(user)
}

// Snapshot returns a deep copy of the current calendar.
func (a *Allocator) Snapshot(ctx context.Context) Calendar {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureLoaded(ctx)
	return a.cal.Clone()
}

func (a *Allocator) ensureLoaded(ctx context.Context) {
	if a.loaded {
		return
	}
	cal, err := a.store.Load(ctx)
	if err != nil {
		a.logger.Warn("calendar load failed; starting from empty calendar", "error", err)
		cal = Calendar{}
	}
	a.cal = cal
	a.loaded = true
}
