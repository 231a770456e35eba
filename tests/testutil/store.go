package testutil

import (
	"testing"
	"time"

	"github.com/nhle/checklist/internal/store"
)

// FixedNow is the clock test stores run on unless a test overrides it.
var FixedNow = time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)

// Today is FixedNow in the entry date layout.
const Today = "2024-03-09"

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It logs through t and runs on FixedNow; later opts override both.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	base := []store.Option{
		store.WithLogger(NewTestLogger(t)),
		store.WithClock(func() time.Time { return FixedNow }),
	}

	s, err := store.NewSQLiteStore(":memory:", append(base, opts...)...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
