package notify

import (
	"database/sql"
	"testing"

	"pingboard/internal/models"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

func TestGetSettingsDefaults(t *testing.T) {
	db := setupTestDB(t)

	s, err := GetSettings(db)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s.SMTPPort != 587 {
		t.Errorf("default port: got %d, want 587", s.SMTPPort)
	}
	if s.EmailTemplate != DefaultTemplate {
		t.Errorf("default template: got %q", s.EmailTemplate)
	}
	if Configured(s) {
		t.Error("empty settings reported as configured")
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	in := &models.EmailSettings{
		SMTPServer:   "smtp.example.com",
		SMTPPort:     465,
		SMTPUsername: "alerts",
		SMTPPassword: "hunter2",
		FromEmail:    "alerts@example.com",
		ToEmail:      "ops@example.com",
	}
	if err := SaveSettings(db, in); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := GetSettings(db)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.SMTPServer != "smtp.example.com" || got.SMTPPort != 465 {
		t.Errorf("settings: got %+v", got)
	}
	if !Configured(got) {
		t.Error("complete settings reported as not configured")
	}

	// Saving again overwrites the singleton row
	in.SMTPPort = 587
	if err := SaveSettings(db, in); err != nil {
		t.Fatalf("SaveSettings update: %v", err)
	}
	got, _ = GetSettings(db)
	if got.SMTPPort != 587 {
		t.Errorf("updated port: got %d, want 587", got.SMTPPort)
	}
}

func TestRecordAndListHistory(t *testing.T) {
	db := setupTestDB(t)

	for _, status := range []string{"sent", "failed", "sent"} {
		rec := &EmailRecord{
			EventType:  "device_down",
			DeviceName: "gateway",
			IP:         "192.168.1.1",
			Message:    "Device gateway reported DOWN",
			Status:     status,
		}
		if _, err := RecordEmail(db, rec); err != nil {
			t.Fatalf("RecordEmail: %v", err)
		}
	}

	got, err := ListHistory(db, 2)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len: got %d, want 2", len(got))
	}
	// Newest first
	if got[0].Status != "sent" || got[1].Status != "failed" {
		t.Errorf("order: got %q, %q", got[0].Status, got[1].Status)
	}
}

func TestMigrateLegacyConfig(t *testing.T) {
	db := setupTestDB(t)
	path := t.TempDir() + "/email_config.json"
	writeFile(t, path, `{
		"smtp_server": "smtp.legacy.example.com",
		"smtp_port": 587,
		"sender_email": "old@example.com",
		"sender_password": "secret",
		"recipients": ["a@example.com", "b@example.com"]
	}`)

	MigrateLegacyConfig(db, path)

	got, err := GetSettings(db)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.SMTPServer != "smtp.legacy.example.com" {
		t.Errorf("server: got %q", got.SMTPServer)
	}
	if got.ToEmail != "a@example.com,b@example.com" {
		t.Errorf("to: got %q", got.ToEmail)
	}

	// A second run must not clobber saved settings
	got.SMTPServer = "smtp.new.example.com"
	SaveSettings(db, got)
	MigrateLegacyConfig(db, path)
	got, _ = GetSettings(db)
	if got.SMTPServer != "smtp.new.example.com" {
		t.Error("migration overwrote existing settings")
	}
}
