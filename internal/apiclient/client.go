package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"pingboard/internal/models"
)

// ErrNotFound reports that the server has no record at the requested ref.
var ErrNotFound = errors.New("not found")

// ErrRejected reports that the server understood the request and refused it.
var ErrRejected = errors.New("request rejected")

// Client is an HTTP client for the pingboard server REST API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cookie     func() *http.Cookie
}

// NewClient creates a Client targeting endpoint. The cookie callback, when
// non-nil, supplies the auth cookie attached to every request; it may return
// nil when no session is active.
func NewClient(endpoint string, cookie func() *http.Cookie) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{},
		cookie:     cookie,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		if ck := c.cookie(); ck != nil {
			req.AddCookie(ck)
		}
	}
	return c.httpClient.Do(req)
}

// GetDevices fetches the full device list.
func (c *Client) GetDevices(ctx context.Context) ([]models.Device, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/devices", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get devices: unexpected status %d", resp.StatusCode)
	}
	var out []models.Device
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

// AddDevice POSTs a new device and returns the server-assigned record.
func (c *Client) AddDevice(ctx context.Context, d models.Device) (*models.Device, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/devices", d)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, fmt.Errorf("add device %q: status %d: %w", d.Name, resp.StatusCode, ErrRejected)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("add device %q: unexpected status %d", d.Name, resp.StatusCode)
	}
	var out models.Device
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Older servers answer with a bare message; fall back to the input.
		out = d
	}
	return &out, nil
}

// UpdateDevice PUTs a full replacement for the device at ref, which is either
// a list index or a device ID.
func (c *Client) UpdateDevice(ctx context.Context, ref string, d models.Device) error {
	resp, err := c.doRequest(ctx, http.MethodPut, "/devices/"+url.PathEscape(ref), d)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("update device %q: %w", ref, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update device %q: unexpected status %d", ref, resp.StatusCode)
	}
	return nil
}

// DeleteDevice removes the device at ref (list index or device ID).
func (c *Client) DeleteDevice(ctx context.Context, ref string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/devices/"+url.PathEscape(ref), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("delete device %q: %w", ref, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete device %q: unexpected status %d", ref, resp.StatusCode)
	}
	return nil
}

// GetStatus fetches the device-name to status-snapshot map.
func (c *Client) GetStatus(ctx context.Context) (map[string]models.StatusSnapshot, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/devices/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get status: unexpected status %d", resp.StatusCode)
	}
	var out map[string]models.StatusSnapshot
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

// GetEmailSettings fetches the stored SMTP configuration.
func (c *Client) GetEmailSettings(ctx context.Context) (*models.EmailSettings, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/email-settings", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get email settings: unexpected status %d", resp.StatusCode)
	}
	var out models.EmailSettings
	return &out, json.NewDecoder(resp.Body).Decode(&out)
}

// SaveEmailSettings persists the SMTP configuration.
func (c *Client) SaveEmailSettings(ctx context.Context, s models.EmailSettings) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/email-settings", s)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("save email settings: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// SendTestEmail asks the server to deliver a test message with the stored
// settings. The returned string carries the server's status text on failure.
func (c *Client) SendTestEmail(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/test-email", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("test email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SendErrorEmail reports a device failure for alert delivery.
func (c *Client) SendErrorEmail(ctx context.Context, deviceName, ip, status string) error {
	body := map[string]string{
		"device_name": deviceName,
		"ip_address":  ip,
		"status":      status,
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/send-error-email", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send error email: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ExportLogFilter narrows an ExportLog request. Zero values mean "no filter".
type ExportLogFilter struct {
	Devices   []string // device names or IPs
	StartDate string   // YYYY-MM-DD
	EndDate   string   // YYYY-MM-DD
	Format    string   // "txt" (default) or "csv"
}

// ExportLog downloads the monitoring log, optionally filtered, and returns
// the raw body.
func (c *Client) ExportLog(ctx context.Context, f ExportLogFilter) ([]byte, error) {
	q := url.Values{}
	if len(f.Devices) > 0 {
		q.Set("devices", strings.Join(f.Devices, ","))
	}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	if f.Format != "" {
		q.Set("format", f.Format)
	}
	path := "/export_log"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export log: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// LogEntry is one structured row of the JSON log view.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Device    string `json:"device"`
	IP        string `json:"ip"`
	Ping      string `json:"ping"`
	HTTP      string `json:"http"`
	Bandwidth string `json:"bandwidth"`
	Down      bool   `json:"down"`
}

// GetLogsJSON fetches the structured monitoring log.
func (c *Client) GetLogsJSON(ctx context.Context) ([]LogEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/logs_json", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get logs: unexpected status %d", resp.StatusCode)
	}
	var out []LogEntry
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

// UpdatePassword overwrites the server-side credential with a precomputed
// SHA-256 hex hash.
func (c *Client) UpdatePassword(ctx context.Context, hash string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/update-password", map[string]string{"hash": hash})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update password: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// UpdateConfig persists raw auth configuration content on the server.
func (c *Client) UpdateConfig(ctx context.Context, content string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/update-config", map[string]string{"content": content})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update config: unexpected status %d", resp.StatusCode)
	}
	return nil
}
