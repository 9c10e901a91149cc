package monitor

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"pingboard/internal/events"
	"pingboard/internal/models"
)

// DefaultInterval is how often the full device list is probed.
const DefaultInterval = 5 * time.Second

// Prober runs the individual sensor checks. The default implementation
// simulates ping and measures HTTP for real; tests substitute their own.
type Prober interface {
	Ping(ctx context.Context, ip string) bool
	HTTP(ctx context.Context, url string) bool
	Bandwidth() float64
}

// DefaultProber simulates ping with a 90% success rate (real ICMP needs
// elevated privileges), probes HTTP with a GET, and synthesizes a bandwidth
// reading for healthy HTTP targets.
type DefaultProber struct {
	Client *http.Client
}

func (p DefaultProber) Ping(ctx context.Context, ip string) bool {
	return rand.Float64() < 0.9
}

func (p DefaultProber) HTTP(ctx context.Context, url string) bool {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p DefaultProber) Bandwidth() float64 {
	return 10.0 + rand.Float64()*990.0
}

// DeviceSource supplies the current device list each sweep.
type DeviceSource interface {
	List() []models.Device
}

// LogAppender receives formatted status lines after a sweep that changed
// something.
type LogAppender interface {
	Append(lines []string) error
}

// Monitor sweeps the device list on an interval, tracks per-device status,
// publishes transition events, and appends to the status log whenever a
// sweep changed anything.
type Monitor struct {
	source   DeviceSource
	prober   Prober
	bus      *events.Bus
	logOut   LogAppender
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	statuses map[string]*models.StatusSnapshot // keyed by statusKey

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a monitor. bus and logOut may be nil when events or logging
// are not wanted.
func New(source DeviceSource, prober Prober, bus *events.Bus, logOut LogAppender) *Monitor {
	if prober == nil {
		prober = DefaultProber{}
	}
	return &Monitor{
		source:   source,
		prober:   prober,
		bus:      bus,
		logOut:   logOut,
		interval: DefaultInterval,
		now:      time.Now,
		statuses: make(map[string]*models.StatusSnapshot),
		stopCh:   make(chan struct{}),
	}
}

// SetInterval overrides the sweep interval. Call before Start.
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Start begins the sweep loop.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			m.Sweep(ctx)
			select {
			case <-ticker.C:
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to finish.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// probeResult carries one device's measurements from the unlocked probe
// phase into the locked apply phase.
type probeResult struct {
	dev       models.Device
	pingOK    bool
	wantsHTTP bool
	httpOK    bool
	bandwidth *float64
}

// Sweep probes every device once. Ping runs first; HTTP and bandwidth are
// only measured when ping succeeded, and a ping failure forces HTTP down
// and clears the bandwidth reading. All network probes run before the
// status lock is taken so a slow HTTP target never stalls status reads.
func (m *Monitor) Sweep(ctx context.Context) {
	devices := m.source.List()

	results := make([]probeResult, 0, len(devices))
	for _, dev := range devices {
		results = append(results, m.probe(ctx, dev))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, res := range results {
		if m.applyLocked(res) {
			changed = true
		}
	}
	m.pruneLocked(devices)

	if changed && m.logOut != nil {
		if err := m.logOut.Append(m.formatLinesLocked(devices)); err != nil {
			log.Printf("⚠️  Status log write failed: %v", err)
		}
	}
}

func (m *Monitor) probe(ctx context.Context, dev models.Device) probeResult {
	res := probeResult{dev: dev}
	res.pingOK = m.prober.Ping(ctx, dev.IP)
	res.wantsHTTP = dev.HasSensor(models.SensorHTTP) || dev.HasSensor(models.SensorHTTPS)
	if res.wantsHTTP && res.pingOK && dev.HTTPPath != "" {
		res.httpOK = m.prober.HTTP(ctx, dev.HTTPPath)
		if res.httpOK {
			res.bandwidth = float64Ptr(m.prober.Bandwidth())
		}
	}
	return res
}

func (m *Monitor) applyLocked(res probeResult) bool {
	dev := res.dev
	status, ok := m.statuses[statusKey(dev)]
	if !ok {
		status = &models.StatusSnapshot{}
		m.statuses[statusKey(dev)] = status
	}

	changed := false
	now := m.now()

	if status.PingStatus == nil || *status.PingStatus != res.pingOK {
		m.publishPing(dev, status.PingStatus, res.pingOK)
		status.PingStatus = boolPtr(res.pingOK)
		status.ChangedAt = now
		changed = true
	}
	status.LastUpdate = now

	if !res.wantsHTTP {
		return changed
	}

	if status.HTTPStatus == nil || *status.HTTPStatus != res.httpOK {
		m.publishHTTP(dev, status.HTTPStatus, res.httpOK)
		status.ChangedAt = now
		changed = true
	}
	status.HTTPStatus = boolPtr(res.httpOK)
	status.BandwidthUsage = res.bandwidth
	return changed
}

// pruneLocked drops status records for devices no longer in the list.
func (m *Monitor) pruneLocked(devices []models.Device) {
	keep := make(map[string]bool, len(devices))
	for _, dev := range devices {
		keep[statusKey(dev)] = true
	}
	for key := range m.statuses {
		if !keep[key] {
			delete(m.statuses, key)
		}
	}
}

// statusKey prefers the device ID so devices sharing an IP keep separate
// records; devices without an ID fall back to the IP.
func statusKey(dev models.Device) string {
	if dev.ID != "" {
		return dev.ID
	}
	return dev.IP
}

func (m *Monitor) publishPing(dev models.Device, prev *bool, ok bool) {
	if m.bus == nil {
		return
	}
	if !ok {
		m.bus.Publish(events.Event{
			Type:       events.DeviceDown,
			Severity:   events.SeverityCritical,
			DeviceName: dev.Name,
			IP:         dev.IP,
			Message:    fmt.Sprintf("Ping to %s (%s) failed", dev.Name, dev.IP),
		})
	} else if prev != nil && !*prev {
		m.bus.Publish(events.Event{
			Type:       events.DeviceRecovered,
			Severity:   events.SeverityInfo,
			DeviceName: dev.Name,
			IP:         dev.IP,
			Message:    fmt.Sprintf("Ping to %s (%s) recovered", dev.Name, dev.IP),
		})
	}
}

func (m *Monitor) publishHTTP(dev models.Device, prev *bool, ok bool) {
	if m.bus == nil {
		return
	}
	if !ok {
		if prev == nil || *prev {
			m.bus.Publish(events.Event{
				Type:       events.HTTPDown,
				Severity:   events.SeverityWarning,
				DeviceName: dev.Name,
				IP:         dev.IP,
				Message:    fmt.Sprintf("HTTP check for %s (%s) failed", dev.Name, dev.IP),
			})
		}
	} else if prev != nil && !*prev {
		m.bus.Publish(events.Event{
			Type:       events.HTTPRecovered,
			Severity:   events.SeverityInfo,
			DeviceName: dev.Name,
			IP:         dev.IP,
			Message:    fmt.Sprintf("HTTP check for %s (%s) recovered", dev.Name, dev.IP),
		})
	}
}

// Statuses returns a copy of the per-device status map keyed by device
// name, the shape the /api/devices/status endpoint serves.
func (m *Monitor) Statuses(devices []models.Device) map[string]models.StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.StatusSnapshot, len(devices))
	for _, dev := range devices {
		snap := models.StatusSnapshot{Name: dev.Name, IP: dev.IP}
		if s, ok := m.statuses[statusKey(dev)]; ok {
			snap.PingStatus = s.PingStatus
			snap.HTTPStatus = s.HTTPStatus
			snap.BandwidthUsage = s.BandwidthUsage
			snap.LastUpdate = s.LastUpdate
			snap.ChangedAt = s.ChangedAt
		}
		out[dev.Name] = snap
	}
	return out
}

// formatLinesLocked renders one log line per device in the fixed format
// "TIMESTAMP - name (ip): Ping: X, HTTP: Y, Bandwidth: Z".
func (m *Monitor) formatLinesLocked(devices []models.Device) []string {
	ts := m.now().Format("2006-01-02 15:04:05")
	lines := make([]string, 0, len(devices))
	for _, dev := range devices {
		status := m.statuses[statusKey(dev)]
		if status == nil {
			status = &models.StatusSnapshot{}
		}

		ping := tristate(status.PingStatus)

		wantsHTTP := dev.HasSensor(models.SensorHTTP) || dev.HasSensor(models.SensorHTTPS)
		httpStr := "N/A"
		bandwidth := "N/A"
		if wantsHTTP {
			httpStr = tristate(status.HTTPStatus)
			if status.HTTPStatus != nil && *status.HTTPStatus && status.BandwidthUsage != nil {
				bandwidth = fmt.Sprintf("%.2f Mbps", *status.BandwidthUsage)
			}
		}

		lines = append(lines, fmt.Sprintf("%s - %s (%s): Ping: %s, HTTP: %s, Bandwidth: %s",
			ts, dev.Name, dev.IP, ping, httpStr, bandwidth))
	}
	return lines
}

func tristate(b *bool) string {
	if b == nil {
		return "N/A"
	}
	if *b {
		return "OK"
	}
	return "FAIL"
}

func boolPtr(b bool) *bool          { return &b }
func float64Ptr(f float64) *float64 { return &f }
