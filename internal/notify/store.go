package notify

import (
	"database/sql"
	"fmt"
	"time"

	"pingboard/internal/models"
)

const timeFormat = "2006-01-02 15:04:05"

// InitSchema creates the notify tables.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS email_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		smtp_server TEXT NOT NULL DEFAULT '',
		smtp_port INTEGER NOT NULL DEFAULT 587,
		smtp_username TEXT NOT NULL DEFAULT '',
		smtp_password TEXT NOT NULL DEFAULT '',
		from_email TEXT NOT NULL DEFAULT '',
		to_email TEXT NOT NULL DEFAULT '',
		email_template TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS email_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		device_name TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		sent_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create notify tables: %w", err)
	}
	return nil
}

// GetSettings returns the stored email settings. When none have been saved
// yet, a zero-value settings struct with the default port and template is
// returned.
func GetSettings(db *sql.DB) (*models.EmailSettings, error) {
	row := db.QueryRow(`
		SELECT smtp_server, smtp_port, smtp_username, smtp_password,
		       from_email, to_email, email_template
		FROM email_settings WHERE id = 1`)

	var s models.EmailSettings
	err := row.Scan(&s.SMTPServer, &s.SMTPPort, &s.SMTPUsername, &s.SMTPPassword,
		&s.FromEmail, &s.ToEmail, &s.EmailTemplate)
	if err == sql.ErrNoRows {
		return &models.EmailSettings{SMTPPort: 587, EmailTemplate: DefaultTemplate}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get email settings: %w", err)
	}
	if s.EmailTemplate == "" {
		s.EmailTemplate = DefaultTemplate
	}
	return &s, nil
}

// SaveSettings upserts the singleton settings row.
func SaveSettings(db *sql.DB, s *models.EmailSettings) error {
	_, err := db.Exec(`
		INSERT INTO email_settings
			(id, smtp_server, smtp_port, smtp_username, smtp_password,
			 from_email, to_email, email_template)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			smtp_server    = excluded.smtp_server,
			smtp_port      = excluded.smtp_port,
			smtp_username  = excluded.smtp_username,
			smtp_password  = excluded.smtp_password,
			from_email     = excluded.from_email,
			to_email       = excluded.to_email,
			email_template = excluded.email_template,
			updated_at     = CURRENT_TIMESTAMP`,
		s.SMTPServer, s.SMTPPort, s.SMTPUsername, s.SMTPPassword,
		s.FromEmail, s.ToEmail, s.EmailTemplate)
	if err != nil {
		return fmt.Errorf("save email settings: %w", err)
	}
	return nil
}

// Configured reports whether the stored settings are complete enough to
// attempt delivery.
func Configured(s *models.EmailSettings) bool {
	return s.SMTPServer != "" && s.SMTPPort > 0 && s.FromEmail != "" && s.ToEmail != ""
}

// RecordEmail inserts a delivery history row.
func RecordEmail(db *sql.DB, rec *EmailRecord) (int64, error) {
	var sentAt interface{}
	if !rec.SentAt.IsZero() {
		sentAt = rec.SentAt.UTC().Format(timeFormat)
	}
	res, err := db.Exec(`
		INSERT INTO email_history
			(event_type, device_name, ip, message, status, error_message, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.EventType, rec.DeviceName, rec.IP, rec.Message,
		rec.Status, rec.ErrorMessage, sentAt)
	if err != nil {
		return 0, fmt.Errorf("record email: %w", err)
	}
	return res.LastInsertId()
}

// ListHistory returns the most recent delivery attempts, newest first.
func ListHistory(db *sql.DB, limit int) ([]EmailRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, event_type, device_name, ip, message, status, error_message,
		       COALESCE(sent_at, ''), created_at
		FROM email_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list email history: %w", err)
	}
	defer rows.Close()

	var out []EmailRecord
	for rows.Next() {
		var rec EmailRecord
		var sentAt string
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.DeviceName, &rec.IP,
			&rec.Message, &rec.Status, &rec.ErrorMessage, &sentAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan email history: %w", err)
		}
		if sentAt != "" {
			rec.SentAt, _ = time.Parse(timeFormat, sentAt)
		}
		rec.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
