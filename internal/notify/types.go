package notify

import "time"

// DefaultTemplate is used when no email template has been configured.
// Placeholders are replaced at send time.
const DefaultTemplate = "Device {device_name} ({ip_address}) reported {status} at {timestamp}"

// DefaultSubject is the subject line for alert mail.
const DefaultSubject = "Device Alert - {device_name}"

// EmailRecord is one row of the delivery history.
type EmailRecord struct {
	ID           int64     `json:"id"`
	EventType    string    `json:"event_type"`
	DeviceName   string    `json:"device_name"`
	IP           string    `json:"ip"`
	Message      string    `json:"message"`
	Status       string    `json:"status"` // "sent" or "failed"
	ErrorMessage string    `json:"error_message,omitempty"`
	SentAt       time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
