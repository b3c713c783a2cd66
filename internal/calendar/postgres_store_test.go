package calendar

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStoreLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithExec(mock)

	alice := "alice"
	mock.ExpectQuery("SELECT date, slot, occupant FROM calendar_slots").
		WillReturnRows(pgxmock.NewRows([]string{"date", "slot", "occupant"}).
			AddRow("2026-09-01", "10:00", &alice).
			AddRow("2026-09-01", "10:30", nil))

	cal, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := cal["2026-09-01"]["10:00"]; got == nil || *got != "alice" {
		t.Fatalf("expected alice at 10:00, got %v", got)
	}
	if occupant, ok := cal["2026-09-01"]["10:30"]; !ok || occupant != nil {
		t.Fatal("expected free 10:30 slot")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreTryBook(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithExec(mock)

	mock.ExpectExec("UPDATE calendar_slots").
		WithArgs("alice", "2026-09-01", "10:00").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	booked, err := store.TryBook(context.Background(), "alice", "2026-09-01", "10:00")
	if err != nil || !booked {
		t.Fatalf("expected winning booking, got booked=%v err=%v", booked, err)
	}

	mock.ExpectExec("UPDATE calendar_slots").
		WithArgs("bob", "2026-09-01", "10:00").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	booked, err = store.TryBook(context.Background(), "bob", "2026-09-01", "10:00")
	if err != nil || booked {
		t.Fatalf("expected occupied slot to lose, got booked=%v err=%v", booked, err)
	}

	mock.ExpectExec("UPDATE calendar_slots").
		WithArgs("carol", "2026-09-01", "10:30").
		WillReturnError(errors.New("connection reset"))
	if _, err := store.TryBook(context.Background(), "carol", "2026-09-01", "10:30"); err == nil {
		t.Fatal("expected error from failed exec")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreMaterializeDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithExec(mock)

	labels := []string{"10:00", "10:30"}
	for _, label := range labels {
		mock.ExpectExec("INSERT INTO calendar_slots").
			WithArgs("2026-09-01", label).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	if err := store.MaterializeDate(context.Background(), "2026-09-01", labels); err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
