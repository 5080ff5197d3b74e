package testutil

import (
	"testing"

	"github.com/kweiss/voicetask/internal/helperstate"
)

// NewTestStore creates an in-memory helper-state store with all
// migrations applied. It automatically closes the store when the test
// completes.
func NewTestStore(t *testing.T) *helperstate.SQLiteStore {
	t.Helper()

	s, err := helperstate.NewSQLiteStore(":memory:")
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
