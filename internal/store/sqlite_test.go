package store

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "jarvismd_test.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	runStoreSuite(t, s)
}

func TestSQLiteStoreCreatesStateDir(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "state", "jarvismd_test.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("expected state directory to be created, got %v", err)
	}
	defer s.Close()

	if err := s.SaveRequest(sampleRequest("req_1", "pt_a")); err != nil {
		t.Errorf("SaveRequest on fresh store failed: %v", err)
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "jarvismd_test.db")

	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.SaveRequest(sampleRequest("req_1", "pt_a")); err != nil {
		t.Fatalf("SaveRequest failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	requests, err := reopened.ListRequests(RequestFilter{})
	if err != nil {
		t.Fatalf("ListRequests after reopen failed: %v", err)
	}
	if len(requests) != 1 || requests[0].ID != "req_1" {
		t.Errorf("expected persisted request to survive reopen, got %v", requests)
	}
}
