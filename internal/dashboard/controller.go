package dashboard

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pingboard/internal/inventory"
	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

// DefaultRefreshInterval paces the periodic re-synchronization.
const DefaultRefreshInterval = 5 * time.Second

// StatusProvider supplies the latest probe results, keyed by device name.
type StatusProvider interface {
	GetStatus(ctx context.Context) (map[string]models.StatusSnapshot, error)
}

// Controller owns the dashboard's view state: the synchronized device list
// with probe results merged in, the active filter, and the sort order. A
// refresh already in flight causes later requests to be dropped, not queued.
type Controller struct {
	cache    *inventory.Cache
	statuses StatusProvider
	store    *localstore.Store

	refreshing atomic.Bool

	mu       sync.Mutex
	devices  []models.Device
	onUpdate func([]models.Device)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewController wires the controller to its data sources. store may be nil
// when UI preferences need not persist.
func NewController(cache *inventory.Cache, statuses StatusProvider, store *localstore.Store) *Controller {
	return &Controller{
		cache:    cache,
		statuses: statuses,
		store:    store,
		stopCh:   make(chan struct{}),
	}
}

// OnUpdate registers a callback invoked with the merged device list after
// every completed refresh.
func (c *Controller) OnUpdate(fn func([]models.Device)) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Refresh synchronizes the inventory and merges in the newest probe
// results. It reports false when dropped because another refresh was
// already running.
func (c *Controller) Refresh(ctx context.Context) bool {
	if !c.refreshing.CompareAndSwap(false, true) {
		return false
	}
	defer c.refreshing.Store(false)

	c.cache.Synchronize(ctx)
	devices := c.cache.Devices()

	if c.statuses != nil {
		if statuses, err := c.statuses.GetStatus(ctx); err == nil {
			merge(devices, statuses)
		} else {
			log.Printf("⚠️  Status fetch failed: %v", err)
		}
	}

	c.mu.Lock()
	c.devices = devices
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn(devices)
	}
	return true
}

// StartPolling refreshes on the given interval until Stop is called.
func (c *Controller) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			c.Refresh(ctx)
			select {
			case <-ticker.C:
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts polling.
func (c *Controller) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// Devices returns the current merged device list.
func (c *Controller) Devices() []models.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// merge copies probe results onto the device records by name.
func merge(devices []models.Device, statuses map[string]models.StatusSnapshot) {
	for i := range devices {
		if s, ok := statuses[devices[i].Name]; ok {
			devices[i].PingStatus = s.PingStatus
			devices[i].HTTPStatus = s.HTTPStatus
			devices[i].BandwidthUsage = s.BandwidthUsage
		}
	}
}

// Filter returns the devices whose name or IP contains text,
// case-insensitively. Empty text matches everything.
func Filter(devices []models.Device, text string) []models.Device {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return devices
	}
	var out []models.Device
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), text) ||
			strings.Contains(strings.ToLower(d.IP), text) {
			out = append(out, d)
		}
	}
	return out
}

// SortField selects the device table sort column.
type SortField string

const (
	SortByName      SortField = "name"
	SortByIP        SortField = "ip"
	SortByCategory  SortField = "category"
	SortByBandwidth SortField = "bandwidth"
)

// Sort orders devices by field, in place. descending reverses the order.
func Sort(devices []models.Device, field SortField, descending bool) {
	less := func(a, b models.Device) bool {
		switch field {
		case SortByIP:
			return a.IP < b.IP
		case SortByCategory:
			return a.Category < b.Category
		case SortByBandwidth:
			return bandwidthOf(a) < bandwidthOf(b)
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(devices, func(i, j int) bool {
		if descending {
			return less(devices[j], devices[i])
		}
		return less(devices[i], devices[j])
	})
}

func bandwidthOf(d models.Device) float64 {
	if d.BandwidthUsage == nil {
		return 0
	}
	return *d.BandwidthUsage
}

// DarkMode returns the persisted dark-mode preference.
func (c *Controller) DarkMode() bool {
	if c.store == nil {
		return false
	}
	return c.store.Get(localstore.KeyDarkMode) == "true"
}

// SetDarkMode persists the dark-mode preference.
func (c *Controller) SetDarkMode(on bool) {
	if c.store == nil {
		return
	}
	value := "false"
	if on {
		value = "true"
	}
	if err := c.store.Put(localstore.KeyDarkMode, value); err != nil {
		log.Printf("⚠️  Failed to persist dark mode: %v", err)
	}
}

// WidgetVisible reports whether the named widget is shown. A widget with
// no stored preference is visible.
func (c *Controller) WidgetVisible(id string) bool {
	if c.store == nil {
		return true
	}
	return c.store.Get(id) != "hidden"
}

// SetWidgetVisible persists a widget visibility preference under the
// widget's id, using the legacy "visible"/"hidden" values.
func (c *Controller) SetWidgetVisible(id string, visible bool) {
	if c.store == nil {
		return
	}
	value := "hidden"
	if visible {
		value = "visible"
	}
	if err := c.store.Put(id, value); err != nil {
		log.Printf("⚠️  Failed to persist widget visibility: %v", err)
	}
}
