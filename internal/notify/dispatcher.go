package notify

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"pingboard/internal/events"
	"pingboard/internal/metrics"
	"pingboard/internal/models"
)

// Cooldown is the minimum interval between alert emails for the same
// device and event type.
const Cooldown = 30 * time.Minute

// Dispatcher subscribes to the event bus, renders the configured email
// template, enforces per-device cooldowns, and delivers via the Sender.
type Dispatcher struct {
	db     *sql.DB
	bus    *events.Bus
	sender Sender

	// cooldowns tracks the last dispatch time per (device, event_type).
	mu        sync.Mutex
	cooldowns map[string]time.Time
	now       func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher wired to the given bus and database.
func NewDispatcher(db *sql.DB, bus *events.Bus, sender Sender) *Dispatcher {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Dispatcher{
		db:        db,
		bus:       bus,
		sender:    sender,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start subscribes to monitoring events and begins dispatching.
func (d *Dispatcher) Start() {
	ch := make(chan events.Event, 256)

	d.bus.Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
			log.Printf("notify: event queue full, dropping %s event", e.Type)
		}
	}, events.DeviceDown, events.DeviceRecovered, events.HTTPDown, events.HTTPRecovered)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case e := <-ch:
				d.handle(e)
			case <-d.stopCh:
				// Drain remaining events
				for {
					select {
					case e := <-ch:
						d.handle(e)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop signals the dispatcher goroutine to finish and waits for it.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// handle processes a single event.
func (d *Dispatcher) handle(e events.Event) {
	settings, err := GetSettings(d.db)
	if err != nil {
		log.Printf("notify: load settings: %v", err)
		return
	}
	if !Configured(settings) {
		return
	}
	if !d.cooldownElapsed(e) {
		return
	}
	d.Deliver(settings, string(e.Type), e.DeviceName, e.IP, statusText(e), e.Timestamp)
}

// cooldownElapsed reports whether an alert for this device and event type
// may be sent now, and records the attempt when it may.
func (d *Dispatcher) cooldownElapsed(e events.Event) bool {
	key := fmt.Sprintf("%s:%s", e.DeviceName, e.Type)
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.cooldowns[key]; ok && now.Sub(last) < Cooldown {
		return false
	}
	d.cooldowns[key] = now
	return true
}

// Deliver renders the template and sends one email, recording the outcome
// in the delivery history.
func (d *Dispatcher) Deliver(settings *models.EmailSettings, eventType, deviceName, ip, status string, at time.Time) error {
	if at.IsZero() {
		at = d.now()
	}
	tmpl := settings.EmailTemplate
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	msg := RenderTemplate(tmpl, deviceName, status, ip, at)
	subject := RenderTemplate(DefaultSubject, deviceName, status, ip, at)

	err := d.sender.Send(SMTPURL(settings, subject), msg)

	rec := &EmailRecord{
		EventType:  eventType,
		DeviceName: deviceName,
		IP:         ip,
		Message:    msg,
	}
	if err != nil {
		rec.Status = "failed"
		rec.ErrorMessage = err.Error()
		log.Printf("notify: send for %s failed: %v", deviceName, err)
	} else {
		rec.Status = "sent"
		rec.SentAt = d.now().UTC()
	}
	metrics.CountEmail(rec.Status)
	if _, dbErr := RecordEmail(d.db, rec); dbErr != nil {
		log.Printf("notify: record history: %v", dbErr)
	}
	return err
}

// SendTest delivers a test message with the stored settings, bypassing
// cooldowns.
func (d *Dispatcher) SendTest() error {
	settings, err := GetSettings(d.db)
	if err != nil {
		return err
	}
	if !Configured(settings) {
		return fmt.Errorf("email settings incomplete")
	}
	return d.Deliver(settings, "test", "test-device", "0.0.0.0", "TEST", d.now())
}

func statusText(e events.Event) string {
	switch e.Type {
	case events.DeviceDown:
		return "DOWN"
	case events.DeviceRecovered:
		return "UP"
	case events.HTTPDown:
		return "HTTP DOWN"
	case events.HTTPRecovered:
		return "HTTP UP"
	default:
		return string(e.Type)
	}
}
