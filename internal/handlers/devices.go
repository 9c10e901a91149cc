package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"pingboard/internal/devices"
	"pingboard/internal/events"
	"pingboard/internal/models"
)

// StatusSource reports current probe results for a set of devices.
type StatusSource interface {
	Statuses([]models.Device) map[string]models.StatusSnapshot
}

// DeviceHandler handles device inventory API requests
type DeviceHandler struct {
	Store  *devices.Store
	Status StatusSource
	Bus    *events.Bus
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(store *devices.Store, status StatusSource, bus *events.Bus) *DeviceHandler {
	return &DeviceHandler{Store: store, Status: status, Bus: bus}
}

// List handles GET /devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, h.Store.List())
}

// Create handles POST /devices
func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dev models.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if dev.Name == "" || dev.IP == "" {
		JSONError(w, "name and ip are required", http.StatusBadRequest)
		return
	}

	created, err := h.Store.Add(dev)
	if err != nil {
		JSONError(w, "Failed to save device", http.StatusInternalServerError)
		return
	}
	log.Printf("✓ Device added: %s (%s)", created.Name, created.IP)

	if h.Bus != nil {
		h.Bus.Publish(events.Event{
			Type:       events.DeviceAdded,
			Severity:   events.SeverityInfo,
			DeviceName: created.Name,
			IP:         created.IP,
			Message:    "Device added to inventory",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// Update handles PUT /devices/{ref}. The ref is either a device ID or a
// positional index kept for older clients.
func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	var dev models.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	updated, err := h.Store.Update(ref, dev)
	if errors.Is(err, devices.ErrNotFound) {
		JSONError(w, "Device not found", http.StatusNotFound)
		return
	}
	if err != nil {
		JSONError(w, "Failed to save device", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, updated)
}

// Delete handles DELETE /devices/{ref}
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	removed, err := h.Store.Remove(ref)
	if errors.Is(err, devices.ErrNotFound) {
		JSONError(w, "Device not found", http.StatusNotFound)
		return
	}
	if err != nil {
		JSONError(w, "Failed to save device", http.StatusInternalServerError)
		return
	}
	log.Printf("✓ Device removed: %s (%s)", removed.Name, removed.IP)

	if h.Bus != nil {
		h.Bus.Publish(events.Event{
			Type:       events.DeviceRemoved,
			Severity:   events.SeverityInfo,
			DeviceName: removed.Name,
			IP:         removed.IP,
			Message:    "Device removed from inventory",
		})
	}
	JSONResponse(w, map[string]bool{"success": true})
}

// DeviceStatus handles GET /api/devices/status
func (h *DeviceHandler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, h.Status.Statuses(h.Store.List()))
}
