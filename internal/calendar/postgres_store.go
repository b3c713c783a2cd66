package calendar

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type slotQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps the calendar in a calendar_slots table, one row per
// (date, slot). Unlike FileStore it supports a storage-level conditional
// write, so bookings stay atomic even with several API instances sharing
// the database.
type PostgresStore struct {
	pool slotQuerier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("calendar: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithExec(exec slotQuerier) *PostgresStore {
	if exec == nil {
		panic("calendar: exec required")
	}
	return &PostgresStore{pool: exec}
}

// Load reads every slot row into the in-memory calendar shape.
func (s *PostgresStore) Load(ctx context.Context) (Calendar, error) {
	query := `SELECT date, slot, occupant FROM calendar_slots`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return Calendar{}, fmt.Errorf("calendar: load slots: %w", err)
	}
	defer rows.Close()

	cal := Calendar{}
	for rows.Next() {
		var date, slot string
		var occupant *string
		if err := rows.Scan(&date, &slot, &occupant); err != nil {
			return Calendar{}, fmt.Errorf("calendar: scan slot row: %w", err)
		}
		if cal[date] == nil {
			cal[date] = Grid{}
		}
		cal[date][slot] = occupant
	}
	if err := rows.Err(); err != nil {
		return Calendar{}, fmt.Errorf("calendar: iterate slot rows: %w", err)
	}
	return cal, nil
}

// Save upserts the full snapshot. The conditional-write path makes this rare;
// it exists so the Store contract holds for bulk restores.
func (s *PostgresStore) Save(ctx context.Context, cal Calendar) error {
	query := `
		INSERT INTO calendar_slots (date, slot, occupant)
		VALUES ($1, $2, $3)
		ON CONFLICT (date, slot) DO UPDATE SET occupant = EXCLUDED.occupant
	`
	for date, grid := range cal {
		for slot, occupant := range grid {
			if _, err := s.pool.Exec(ctx, query, date, slot, occupant); err != nil {
				return fmt.Errorf("calendar: save slot %s %s: %w", date, slot, err)
			}
		}
	}
	return nil
}

// MaterializeDate inserts free rows for each slot of a date. Existing rows,
// occupied or not, are left untouched.
func (s *PostgresStore) MaterializeDate(ctx context.Context, date string, labels []string) error {
	query := `
		INSERT INTO calendar_slots (date, slot, occupant)
		VALUES ($1, $2, NULL)
		ON CONFLICT DO NOTHING
	`
	for _, label := range labels {
		if _, err := s.pool.Exec(ctx, query, date, label); err != nil {
			return fmt.Errorf("calendar: materialize %s %s: %w", date, label, err)
		}
	}
	return nil
}

// TryBook claims the slot only if it is still free. The WHERE clause makes the
// check and the write a single statement; rows affected tells us who won.
func (s *PostgresStore) TryBook(ctx context.Context, user, date, slot string) (bool, error) {
	query := `
		UPDATE calendar_slots
		SET occupant = $1, booked_at = NOW()
		WHERE date = $2 AND slot = $3 AND occupant IS NULL
	`
	ct, err := s.pool.Exec(ctx, query, user, date, slot)
	if err != nil {
		return false, fmt.Errorf("calendar: book slot: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
