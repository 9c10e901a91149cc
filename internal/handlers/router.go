package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"pingboard/internal/metrics"
	"pingboard/internal/middleware"
	"pingboard/internal/ws"
)

// NewRouter wires all API routes. Everything except /health and /metrics
// is gated on the auth cookie while authEnabled reports true.
func NewRouter(authEnabled func() bool, dev *DeviceHandler, email *EmailHandler, logs *LogHandler, creds *CredentialHandler, hub *ws.Hub) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		JSONResponse(w, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.NewRoute().Subrouter()
	api.Use(middleware.RequireAuth(authEnabled))

	api.Handle("/devices", metrics.Middleware("/devices", http.HandlerFunc(dev.List))).Methods("GET")
	api.Handle("/devices", metrics.Middleware("/devices", http.HandlerFunc(dev.Create))).Methods("POST")
	api.Handle("/devices/{ref}", metrics.Middleware("/devices/{ref}", http.HandlerFunc(dev.Update))).Methods("PUT")
	api.Handle("/devices/{ref}", metrics.Middleware("/devices/{ref}", http.HandlerFunc(dev.Delete))).Methods("DELETE")
	api.Handle("/api/devices/status", metrics.Middleware("/api/devices/status", http.HandlerFunc(dev.DeviceStatus))).Methods("GET")

	api.Handle("/api/email-settings", metrics.Middleware("/api/email-settings", http.HandlerFunc(email.GetSettings))).Methods("GET")
	api.Handle("/api/email-settings", metrics.Middleware("/api/email-settings", http.HandlerFunc(email.SaveSettings))).Methods("POST")
	api.Handle("/api/test-email", metrics.Middleware("/api/test-email", http.HandlerFunc(email.TestEmail))).Methods("POST")
	api.Handle("/api/send-error-email", metrics.Middleware("/api/send-error-email", http.HandlerFunc(email.SendErrorEmail))).Methods("POST")
	api.Handle("/api/email-history", metrics.Middleware("/api/email-history", http.HandlerFunc(email.History))).Methods("GET")

	api.Handle("/export_log", metrics.Middleware("/export_log", http.HandlerFunc(logs.Export))).Methods("GET")
	api.Handle("/logs_json", metrics.Middleware("/logs_json", http.HandlerFunc(logs.JSON))).Methods("GET")

	// Credential endpoints get a per-IP token bucket.
	limiter := middleware.NewRateLimiter(5, time.Minute)
	api.Handle("/update-password", metrics.Middleware("/update-password", limiter.Limit(creds.UpdatePassword))).Methods("POST")
	api.Handle("/update-config", metrics.Middleware("/update-config", limiter.Limit(creds.UpdateConfig))).Methods("POST")

	if hub != nil {
		// No metrics wrapper here, the upgrade needs the raw
		// ResponseWriter for hijacking.
		api.HandleFunc("/ws/status", hub.HandleConnection).Methods("GET")
	}

	return middleware.Logging(middleware.CORS(r))
}
