package calendar

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type stubStore struct {
	mu        sync.Mutex
	cal       Calendar
	loadErr   error
	saveErr   error
	saveCalls int
}

func (s *stubStore) Load(ctx context.Context) (Calendar, error) {
	if s.loadErr != nil {
		return Calendar{}, s.loadErr
	}
	if s.cal == nil {
		return Calendar{}, nil
	}
	return s.cal.Clone(), nil
}

func (s *stubStore) Save(ctx context.Context, cal Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cal = cal.Clone()
	return nil
}

type casStubStore struct {
	stubStore
	occupied map[string]string // "date slot" -> occupant
	bookErr  error
}

func (s *casStubStore) MaterializeDate(ctx context.Context, date string, labels []string) error {
	return nil
}

func (s *casStubStore) TryBook(ctx context.Context, user, date, slot string) (bool, error) {
	if s.bookErr != nil {
		return false, s.bookErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupied == nil {
		s.occupied = map[string]string{}
	}
	key := date + " " + slot
	if _, taken := s.occupied[key]; taken {
		return false, nil
	}
	s.occupied[key] = user
	return true, nil
}

func newTestAllocator(t *testing.T, store Store) *Allocator {
	t.Helper()
	a, err := NewAllocator(store, DefaultHours(), nil, nil)
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	return a
}

func TestBookSlotConflict(t *testing.T) {
	store := &stubStore{}
	a := newTestAllocator(t, store)
	ctx := context.Background()

	first := a.BookSlot(ctx, "alice", "2026-09-01", "10:00")
	if first.Outcome != OutcomeBooked || !first.Persisted {
		t.Fatalf("expected persisted booking, got %+v", first)
	}

	second := a.BookSlot(ctx, "bob", "2026-09-01", "10:00")
	if second.Outcome != OutcomeSlotTaken {
		t.Fatalf("expected slot_taken, got %+v", second)
	}
	if strings.Contains(second.Message, "alice") {
		t.Fatalf("conflict message must not reveal the occupant: %q", second.Message)
	}

	appts := a.ListAppointments(ctx, "bob")
	if len(appts) != 0 {
		t.Fatalf("failed attempt must not create an appointment, got %v", appts)
	}
}

func TestBookSlotInvalidTimes(t *testing.T) {
	store := &stubStore{}
	a := newTestAllocator(t, store)
	ctx := context.Background()

	for _, slot := range []string{"16:00", "09:30", "10:15", "noonish"} {
		res := a.BookSlot(ctx, "alice", "2026-09-01", slot)
		if res.Outcome != OutcomeInvalidSlot {
			t.Fatalf("slot %q: expected invalid_slot, got %+v", slot, res)
		}
	}

	store.mu.Lock()
	calls := store.saveCalls
	store.mu.Unlock()
	if calls != 0 {
		t.Fatalf("invalid attempts must not write, got %d saves", calls)
	}
}

func TestBookSlotRaceHasOneWinner(t *testing.T) {
	a := newTestAllocator(t, &stubStore{})

	const contenders = 16
	results := make([]BookingResult, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.BookSlot(context.Background(), "user", "2026-09-01", "11:00")
		}(i)
	}
	wg.Wait()

	booked := 0
	for _, r := range results {
		switch r.Outcome {
		case OutcomeBooked:
			booked++
		case OutcomeSlotTaken:
		default:
			t.Fatalf("unexpected outcome %+v", r)
		}
	}
	if booked != 1 {
		t.Fatalf("expected exactly one winner, got %d", booked)
	}
}

func TestBookSlotSaveFailureIsNonFatal(t *testing.T) {
	store := &stubStore{saveErr: errors.New("disk full")}
	a := newTestAllocator(t, store)
	ctx := context.Background()

	res := a.BookSlot(ctx, "alice", "2026-09-01", "10:30")
	if res.Outcome != OutcomeBooked {
		t.Fatalf("expected booked, got %+v", res)
	}
	if res.Persisted {
		t.Fatal("expected Persisted=false after save failure")
	}
	if !strings.Contains(res.Message, "may not persist") {
		t.Fatalf("expected persistence warning in message, got %q", res.Message)
	}

	// In-memory state stays authoritative for the process lifetime.
	again := a.BookSlot(ctx, "bob", "2026-09-01", "10:30")
	if again.Outcome != OutcomeSlotTaken {
		t.Fatalf("expected slot_taken after unpersisted booking, got %+v", again)
	}
	appts := a.ListAppointments(ctx, "alice")
	if len(appts) != 1 || appts[0].Time != "10:30" {
		t.Fatalf("expected alice's unpersisted booking to be listed, got %v", appts)
	}
}

func TestBookSlotConditionalWriteFailureIsUnconfirmed(t *testing.T) {
	store := &casStubStore{bookErr: errors.New("connection reset")}
	a := newTestAllocator(t, store)

	res := a.BookSlot(context.Background(), "alice", "2026-09-01", "10:00")
	if res.Outcome != OutcomeUnconfirmed {
		t.Fatalf("expected unconfirmed outcome, got %+v", res)
	}
	if res.Booked() {
		t.Fatal("a failed conditional write must not report a booking")
	}
	if res.Persisted {
		t.Fatal("expected Persisted=false when nothing was written")
	}
	if !strings.Contains(res.Message, "try again") {
		t.Fatalf("expected retry hint in message, got %q", res.Message)
	}
}

func TestBookSlotConditionalPath(t *testing.T) {
	store := &casStubStore{}
	a := newTestAllocator(t, store)
	ctx := context.Background()

	first := a.BookSlot(ctx, "alice", "2026-09-01", "10:00")
	if first.Outcome != OutcomeBooked || !first.Persisted {
		t.Fatalf("expected persisted booking, got %+v", first)
	}
	second := a.BookSlot(ctx, "bob", "2026-09-01", "10:00")
	if second.Outcome != OutcomeSlotTaken {
		t.Fatalf("expected slot_taken, got %+v", second)
	}
	if invalid := a.BookSlot(ctx, "bob", "2026-09-01", "10:15"); invalid.Outcome != OutcomeInvalidSlot {
		t.Fatalf("expected invalid_slot off the grid, got %+v", invalid)
	}
}

func TestLoadFailureDegradesToEmpty(t *testing.T) {
	store := &stubStore{loadErr: errors.New("backend down")}
	a := newTestAllocator(t, store)

	if appts := a.ListAppointments(context.Background(), "alice"); len(appts) != 0 {
		t.Fatalf("expected empty appointment list, got %v", appts)
	}
}

func TestListAppointmentsSorted(t *testing.T) {
	a := newTestAllocator(t, &stubStore{})
	ctx := context.Background()

	a.BookSlot(ctx, "alice", "2026-09-02", "10:00")
	a.BookSlot(ctx, "alice", "2026-09-01", "15:30")
	a.BookSlot(ctx, "alice", "2026-09-01", "10:30")
	a.BookSlot(ctx, "bob", "2026-09-01", "11:00")

	appts := a.ListAppointments(ctx, "alice")
	want := []Appointment{
		{Date: "2026-09-01", Time: "10:30", User: "alice"},
		{Date: "2026-09-01", Time: "15:30", User: "alice"},
		{Date: "2026-09-02", Time: "10:00", User: "alice"},
	}
	if len(appts) != len(want) {
		t.Fatalf("expected %d appointments, got %d", len(want), len(appts))
	}
	for i, appt := range appts {
		if appt != want[i] {
			t.Fatalf("appointment %d: expected %+v, got %+v", i, want[i], appt)
		}
	}
}
