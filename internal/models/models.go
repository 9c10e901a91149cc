package models

import "time"

// SensorType identifies a probe configured on a device.
type SensorType string

const (
	SensorPing      SensorType = "Ping"
	SensorHTTP      SensorType = "Http"
	SensorHTTPS     SensorType = "Https"
	SensorBandwidth SensorType = "Bandwidth"
)

// Device is a monitored network device. The JSON shape matches the legacy
// wire format; ID was added later so devices survive list reordering and is
// omitted when talking to servers that predate it.
type Device struct {
	ID             string       `json:"id,omitempty"`
	Name           string       `json:"name"`
	IP             string       `json:"ip"`
	Category       string       `json:"category"`
	Sensors        []SensorType `json:"sensors"`
	HTTPPath       string       `json:"http_path,omitempty"`
	PingStatus     *bool        `json:"ping_status,omitempty"`
	HTTPStatus     *bool        `json:"http_status,omitempty"`
	BandwidthUsage *float64     `json:"bandwidth_usage,omitempty"`
}

// HasSensor reports whether the device has the given sensor configured.
func (d *Device) HasSensor(s SensorType) bool {
	for _, got := range d.Sensors {
		if got == s {
			return true
		}
	}
	return false
}

// NeedsHTTPPath reports whether an http_path is required for this device.
func (d *Device) NeedsHTTPPath() bool {
	return d.HasSensor(SensorHTTP) || d.HasSensor(SensorHTTPS)
}

// Role distinguishes administrators from regular operators.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is a stored account. The JSON keys match the legacy persisted format.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Role         Role   `json:"role"`
}

// Session is the advisory descriptor of the authenticated identity. It is
// held by the client and used only for UI gating, never as a trust boundary.
type Session struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	LastLogin time.Time `json:"lastLogin,omitempty"`
}

// StatusSnapshot is one device's probe results at a point in time.
type StatusSnapshot struct {
	Name           string    `json:"name"`
	IP             string    `json:"ip"`
	PingStatus     *bool     `json:"ping_status"`
	HTTPStatus     *bool     `json:"http_status"`
	BandwidthUsage *float64  `json:"bandwidth_usage"`
	LastUpdate     time.Time `json:"last_update"`
	ChangedAt      time.Time `json:"changed_at"`
}

// EmailSettings is the SMTP alert configuration. The JSON shape matches the
// /api/email-settings endpoint.
type EmailSettings struct {
	SMTPServer    string `json:"smtp_server"`
	SMTPPort      int    `json:"smtp_port"`
	SMTPUsername  string `json:"smtp_username"`
	SMTPPassword  string `json:"smtp_password,omitempty"`
	FromEmail     string `json:"from_email"`
	ToEmail       string `json:"to_email"`
	EmailTemplate string `json:"email_template,omitempty"`
}

// Config holds server configuration.
type Config struct {
	Port         string
	DBPath       string
	DevicesPath  string
	LogPath      string
	AdminUser    string
	AdminPass    string
	AuthEnabled  bool
	PollInterval time.Duration
}
