package notify

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"strings"
)

// legacyConfig is the shape of the old email_config.json file.
type legacyConfig struct {
	SMTPServer     string   `json:"smtp_server"`
	SMTPPort       int      `json:"smtp_port"`
	SenderEmail    string   `json:"sender_email"`
	SenderPassword string   `json:"sender_password"`
	Recipients     []string `json:"recipients"`
	EmailBody      string   `json:"email_body"`
}

// MigrateLegacyConfig imports an email_config.json file left over from
// earlier releases into the settings table. It runs once: when the
// database already holds settings the file is ignored.
func MigrateLegacyConfig(db *sql.DB, path string) {
	current, err := GetSettings(db)
	if err != nil || current.SMTPServer != "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var legacy legacyConfig
	if err := json.Unmarshal(raw, &legacy); err != nil {
		log.Printf("⚠️  Ignoring unreadable legacy email config %s: %v", path, err)
		return
	}
	if legacy.SMTPServer == "" {
		return
	}

	current.SMTPServer = legacy.SMTPServer
	current.SMTPPort = legacy.SMTPPort
	current.SMTPUsername = legacy.SenderEmail
	current.SMTPPassword = legacy.SenderPassword
	current.FromEmail = legacy.SenderEmail
	current.ToEmail = strings.Join(legacy.Recipients, ",")
	if legacy.EmailBody != "" {
		current.EmailTemplate = legacy.EmailBody
	}

	if err := SaveSettings(db, current); err != nil {
		log.Printf("⚠️  Legacy email config migration failed: %v", err)
		return
	}
	log.Printf("✓ Imported legacy email config from %s", path)
}
