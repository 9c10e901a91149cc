package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"pingboard/internal/models"
	"pingboard/internal/notify"
)

// EmailHandler handles email settings and dispatch requests
type EmailHandler struct {
	DB         *sql.DB
	Dispatcher *notify.Dispatcher
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(db *sql.DB, dispatcher *notify.Dispatcher) *EmailHandler {
	return &EmailHandler{DB: db, Dispatcher: dispatcher}
}

// GetSettings handles GET /api/email-settings
func (h *EmailHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := notify.GetSettings(h.DB)
	if err != nil {
		JSONError(w, "Failed to load email settings", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, settings)
}

// SaveSettings handles POST /api/email-settings
func (h *EmailHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.EmailSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := notify.SaveSettings(h.DB, &settings); err != nil {
		JSONError(w, "Failed to save email settings", http.StatusInternalServerError)
		return
	}
	log.Printf("✓ Email settings saved (server %s:%d)", settings.SMTPServer, settings.SMTPPort)
	JSONResponse(w, map[string]bool{"success": true})
}

// TestEmail handles POST /api/test-email
func (h *EmailHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.Dispatcher.SendTest(); err != nil {
		JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	JSONResponse(w, map[string]bool{"success": true})
}

// SendErrorEmail handles POST /api/send-error-email. The dashboard calls
// this directly when it observes a failure, bypassing the cooldown.
func (h *EmailHandler) SendErrorEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceName string `json:"device_name"`
		IPAddress  string `json:"ip_address"`
		Status     string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.DeviceName == "" {
		JSONError(w, "device_name is required", http.StatusBadRequest)
		return
	}

	settings, err := notify.GetSettings(h.DB)
	if err != nil {
		JSONError(w, "Failed to load email settings", http.StatusInternalServerError)
		return
	}
	if !notify.Configured(settings) {
		JSONError(w, "Email settings incomplete", http.StatusBadRequest)
		return
	}
	if err := h.Dispatcher.Deliver(settings, "error", req.DeviceName, req.IPAddress, req.Status, time.Now()); err != nil {
		JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	JSONResponse(w, map[string]bool{"success": true})
}

// History handles GET /api/email-history
func (h *EmailHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	history, err := notify.ListHistory(h.DB, limit)
	if err != nil {
		JSONError(w, "Failed to load email history", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, history)
}
