package sqlstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"schoolsched/internal/domain"
	"schoolsched/internal/store"
)

// Runs against a throwaway database: tables are truncated before and after.
func openPostgresForTest(t *testing.T) *Store {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("SCHOOLSCHED_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("SCHOOLSCHED_TEST_DATABASE_URL not set")
	}

	if err := MigrateUp(DriverPostgres, databaseURL); err != nil {
		t.Fatalf("MigrateUp error: %v", err)
	}

	db, err := Open(DriverPostgres, databaseURL, PoolConfig{MaxOpenConns: 8})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	truncate := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := db.NewRaw("TRUNCATE classes, classrooms RESTART IDENTITY").Exec(ctx); err != nil {
			t.Fatalf("truncate error: %v", err)
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		_ = Close(db)
	})

	return New(db)
}

func TestPostgresIntegration_ExclusionConstraintRejectsOverlap(t *testing.T) {
	s := openPostgresForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.AddClassroom(ctx, domain.Classroom{Name: "R1", Capacity: 30}); err != nil {
		t.Fatalf("AddClassroom error: %v", err)
	}
	if _, err := s.AddClassroom(ctx, domain.Classroom{Name: "R1", Capacity: 30}); !errors.Is(err, store.ErrDuplicateName) {
		t.Fatalf("duplicate AddClassroom error = %v, want ErrDuplicateName", err)
	}

	if _, err := s.AddClass(ctx, session("R1", "Monday", 540, 600)); err != nil {
		t.Fatalf("AddClass error: %v", err)
	}
	if _, err := s.AddClass(ctx, session("R1", "Monday", 570, 630)); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("overlapping AddClass error = %v, want ErrConflict", err)
	}
	if _, err := s.AddClass(ctx, session("R1", "Monday", 600, 660)); err != nil {
		t.Fatalf("back-to-back AddClass error: %v", err)
	}
	if _, err := s.AddClass(ctx, session("R9", "Monday", 540, 600)); !errors.Is(err, store.ErrUnknownRoom) {
		t.Fatalf("unknown room AddClass error = %v, want ErrUnknownRoom", err)
	}
	if _, err := s.DeleteClassroom(ctx, "R1"); !errors.Is(err, store.ErrRoomInUse) {
		t.Fatalf("DeleteClassroom error = %v, want ErrRoomInUse", err)
	}
}

func TestPostgresIntegration_AdvisoryLockSerializesSlot(t *testing.T) {
	s := openPostgresForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.AddClassroom(ctx, domain.Classroom{Name: "R1", Capacity: 30}); err != nil {
		t.Fatalf("AddClassroom error: %v", err)
	}

	const attempts = 6
	key := store.SlotKey{Room: "R1", Day: "Monday"}
	errConflict := errors.New("slot taken")

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.InSlotTransaction(ctx, key, func(ctx context.Context, tx store.SlotTx) error {
				rows, err := tx.FindClasses(ctx, key.Room, key.Day)
				if err != nil {
					return err
				}
				if len(rows) > 0 {
					return errConflict
				}
				_, err = tx.AddClass(ctx, session("R1", "Monday", 540, 600))
				return err
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Fatalf("ok = %d, conflicts = %d, want 1 and %d", ok, conflicts, attempts-1)
	}
}
