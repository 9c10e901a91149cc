package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"

	"pingboard/internal/apiclient"
	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

// Remote is the subset of the API client the cache depends on.
type Remote interface {
	GetDevices(ctx context.Context) ([]models.Device, error)
	AddDevice(ctx context.Context, d models.Device) (*models.Device, error)
	DeleteDevice(ctx context.Context, ref string) error
}

// Cache is a durable local copy of the device inventory, reconciled against
// the server with graceful degradation: every operation tries the server
// first and falls back to the local copy when the network is down. A remote
// fetch always replaces the whole cache; offline edits are superseded once
// connectivity returns.
type Cache struct {
	mu      sync.Mutex
	store   *localstore.Store
	remote  Remote
	devices []models.Device
}

// Result reports how an Add or Remove landed.
type Result struct {
	OK        bool
	LocalOnly bool // succeeded, but only in the local cache
}

func NewCache(store *localstore.Store, remote Remote) *Cache {
	return &Cache{store: store, remote: remote}
}

// Load fetches the inventory from the server and replaces the local cache.
// When the server is unreachable it returns the persisted local copy, and
// when that is empty or corrupt it initializes an empty cache. Load never
// returns an error; connectivity problems degrade to local data.
func (c *Cache) Load(ctx context.Context) []models.Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	if devices, err := c.remote.GetDevices(ctx); err == nil {
		c.replaceLocked(devices)
		return c.snapshot()
	} else {
		log.Printf("⚠️  Device fetch failed, using local cache: %v", err)
	}

	var local []models.Device
	if !c.store.GetJSON(localstore.KeyDevices, &local) || local == nil {
		local = []models.Device{}
	}
	c.replaceLocked(local)
	return c.snapshot()
}

// Synchronize re-fetches the inventory and reports whether it differed from
// the in-memory list. Comparison is structural over the serialized form; a
// remote failure leaves the cache untouched and reports no change.
func (c *Cache) Synchronize(ctx context.Context) bool {
	devices, err := c.remote.GetDevices(ctx)
	if err != nil {
		log.Printf("⚠️  Device sync failed: %v", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, _ := json.Marshal(c.devices)
	fetched, _ := json.Marshal(devices)
	if string(current) == string(fetched) {
		return false
	}
	c.replaceLocked(devices)
	return true
}

// Add creates the device on the server and appends it locally. Only a
// transport failure degrades to a local-only append, superseded by the next
// successful Synchronize; a server-side rejection fails the add outright.
func (c *Cache) Add(ctx context.Context, d models.Device) Result {
	created, err := c.remote.AddDevice(ctx, d)
	localOnly := false
	switch {
	case err == nil:
		d = *created
	case errors.Is(err, apiclient.ErrRejected):
		log.Printf("⚠️  Device add rejected by server: %v", err)
		return Result{}
	default:
		localOnly = true
		log.Printf("⚠️  Device add failed remotely, keeping local-only: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(append(c.snapshot(), d))
	return Result{OK: true, LocalOnly: localOnly}
}

// Remove deletes the device identified by ref (index, ID, or name). The ref
// is resolved against the local list first so the server is always addressed
// by device ID. Only a transport failure degrades to a local-only removal; a
// device the server has already lost is just dropped. Returns OK=false when
// no local device matches.
func (c *Cache) Remove(ctx context.Context, ref string) Result {
	c.mu.Lock()
	var target *models.Device
	for i, d := range c.devices {
		if matches(d, i, ref) {
			target = &d
			break
		}
	}
	c.mu.Unlock()
	if target == nil {
		return Result{}
	}

	localOnly := false
	// Devices created while offline carry no server ID; there is nothing
	// to delete remotely.
	if target.ID != "" {
		switch err := c.remote.DeleteDevice(ctx, target.ID); {
		case err == nil:
		case errors.Is(err, apiclient.ErrNotFound):
			log.Printf("⚠️  Device %s already gone on server, dropping local copy", target.Name)
		default:
			localOnly = true
			log.Printf("⚠️  Device remove failed remotely, dropping local-only: %v", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]models.Device, 0, len(c.devices))
	removed := false
	for _, d := range c.devices {
		if !removed && sameDevice(d, *target) {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	if removed {
		c.replaceLocked(kept)
	}
	return Result{OK: true, LocalOnly: localOnly}
}

// Devices returns a copy of the in-memory list.
func (c *Cache) Devices() []models.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Categories returns the distinct device categories in inventory order.
func (c *Cache) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, d := range c.devices {
		if d.Category != "" && !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	return out
}

func (c *Cache) replaceLocked(devices []models.Device) {
	c.devices = devices
	if err := c.store.PutJSON(localstore.KeyDevices, devices); err != nil {
		log.Printf("⚠️  Failed to persist device cache: %v", err)
	}
}

func (c *Cache) snapshot() []models.Device {
	out := make([]models.Device, len(c.devices))
	copy(out, c.devices)
	return out
}

func sameDevice(a, b models.Device) bool {
	if b.ID != "" {
		return a.ID == b.ID
	}
	return a.ID == "" && a.Name == b.Name && a.IP == b.IP
}

func matches(d models.Device, index int, ref string) bool {
	if d.ID != "" && d.ID == ref {
		return true
	}
	if d.Name == ref {
		return true
	}
	return strconv.Itoa(index) == ref
}
