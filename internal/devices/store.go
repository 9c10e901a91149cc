package devices

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"pingboard/internal/models"
)

// ErrNotFound is returned when no device matches the given reference.
var ErrNotFound = fmt.Errorf("device not found")

// Store owns the devices.json file. Devices are addressed by stable UUID;
// plain list indexes are still accepted for callers that predate IDs.
type Store struct {
	mu      sync.Mutex
	path    string
	devices []models.Device
}

// OpenStore loads the device list from path, creating an empty file when
// none exists. Devices without an ID are assigned one and the file is
// written back so IDs stay stable across restarts.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.devices = []models.Device{}
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var devices []models.Device
	if err := json.Unmarshal(raw, &devices); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	assigned := false
	for i := range devices {
		if devices[i].ID == "" {
			devices[i].ID = uuid.NewString()
			assigned = true
		}
	}
	s.devices = devices
	if assigned {
		return s.saveLocked()
	}
	return nil
}

// Reload re-reads the file, keeping the current list when the file is
// unreadable mid-write.
func (s *Store) Reload() {
	if err := s.load(); err != nil {
		log.Printf("⚠️  Device file reload failed: %v", err)
	}
}

func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.devices, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal devices: %w", err)
	}
	// Write-then-rename keeps readers from seeing a half-written file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// List returns a copy of all devices.
func (s *Store) List() []models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Add appends a device, assigning it a UUID, and persists the list.
func (s *Store) Add(d models.Device) (models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = uuid.NewString()
	s.devices = append(s.devices, d)
	if err := s.saveLocked(); err != nil {
		s.devices = s.devices[:len(s.devices)-1]
		return models.Device{}, err
	}
	return d, nil
}

// Update replaces the device at ref (UUID or list index). The existing ID
// is preserved regardless of what the caller sent.
func (s *Store) Update(ref string, d models.Device) (models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(ref)
	if !ok {
		return models.Device{}, ErrNotFound
	}
	d.ID = s.devices[i].ID
	prev := s.devices[i]
	s.devices[i] = d
	if err := s.saveLocked(); err != nil {
		s.devices[i] = prev
		return models.Device{}, err
	}
	return d, nil
}

// Remove deletes the device at ref (UUID or list index) and persists.
func (s *Store) Remove(ref string) (models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(ref)
	if !ok {
		return models.Device{}, ErrNotFound
	}
	removed := s.devices[i]
	s.devices = append(s.devices[:i], s.devices[i+1:]...)
	if err := s.saveLocked(); err != nil {
		return models.Device{}, err
	}
	return removed, nil
}

// Get returns the device at ref (UUID or list index).
func (s *Store) Get(ref string) (models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOfLocked(ref)
	if !ok {
		return models.Device{}, ErrNotFound
	}
	return s.devices[i], nil
}

func (s *Store) indexOfLocked(ref string) (int, bool) {
	for i, d := range s.devices {
		if d.ID == ref {
			return i, true
		}
	}
	// Index-compat path for pre-ID clients
	if n, err := strconv.Atoi(ref); err == nil && n >= 0 && n < len(s.devices) {
		return n, true
	}
	return 0, false
}

// EnsureDirectory creates the parent directory for the device file.
func EnsureDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create device directory %s: %w", dir, err)
	}
	return nil
}
