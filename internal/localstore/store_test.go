package localstore

import (
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := setupTestStore(t)

	if got := s.Get("darkMode"); got != "" {
		t.Errorf("Expected empty value for absent key, got %q", got)
	}

	if err := s.Put("darkMode", "true"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := s.Get("darkMode"); got != "true" {
		t.Errorf("Expected \"true\", got %q", got)
	}

	// Overwrite
	if err := s.Put("darkMode", "false"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := s.Get("darkMode"); got != "false" {
		t.Errorf("Expected \"false\" after overwrite, got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Put("currentUser", `{"username":"admin"}`); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete("currentUser"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := s.Get("currentUser"); got != "" {
		t.Errorf("Expected empty value after delete, got %q", got)
	}

	// Deleting an absent key is fine
	if err := s.Delete("currentUser"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	type record struct {
		Count     int   `json:"count"`
		Timestamp int64 `json:"timestamp"`
	}

	in := map[string]record{"alice": {Count: 3, Timestamp: 1700000000000}}
	if err := s.PutJSON(KeyLoginAttempts, in); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}

	var out map[string]record
	if !s.GetJSON(KeyLoginAttempts, &out) {
		t.Fatal("GetJSON reported no value")
	}
	if out["alice"].Count != 3 || out["alice"].Timestamp != 1700000000000 {
		t.Errorf("Round trip mismatch: %+v", out)
	}
}

func TestCorruptJSONDiscarded(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Put(KeyDevices, "{not json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var devices []string
	if s.GetJSON(KeyDevices, &devices) {
		t.Error("Expected GetJSON to reject corrupt value")
	}

	// The corrupt value must be gone, not left to fail again
	if got := s.Get(KeyDevices); got != "" {
		t.Errorf("Expected corrupt value to be deleted, got %q", got)
	}
}

func TestGetJSONAbsent(t *testing.T) {
	s := setupTestStore(t)

	var v map[string]string
	if s.GetJSON("nope", &v) {
		t.Error("Expected GetJSON to report no value for absent key")
	}
}
