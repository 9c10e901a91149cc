package events

import "time"

// EventType identifies the kind of event being published.
type EventType string

const (
	// Monitoring events
	DeviceDown      EventType = "device_down"
	DeviceRecovered EventType = "device_recovered"
	HTTPDown        EventType = "http_down"
	HTTPRecovered   EventType = "http_recovered"

	// Inventory events
	DeviceAdded   EventType = "device_added"
	DeviceRemoved EventType = "device_removed"
)

// Severity indicates the urgency of an event.
type Severity int

const (
	SeverityInfo     Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event is the payload published through the bus.
type Event struct {
	Type       EventType         `json:"type"`
	Severity   Severity          `json:"severity"`
	DeviceName string            `json:"device_name,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
