package handlers

import (
	"net/http"
	"strings"

	"pingboard/internal/logexport"
)

// LogHandler serves the monitoring log in its export and JSON forms
type LogHandler struct {
	Path string
}

// NewLogHandler creates a log handler reading the log file at path
func NewLogHandler(path string) *LogHandler {
	return &LogHandler{Path: path}
}

// Export handles GET /export_log?devices=&start_date=&end_date=&format=
func (h *LogHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter logexport.Filter
	if devs := q.Get("devices"); devs != "" {
		for _, d := range strings.Split(devs, ",") {
			if d = strings.TrimSpace(d); d != "" {
				filter.Devices = append(filter.Devices, d)
			}
		}
	}
	filter.StartDate = q.Get("start_date")
	filter.EndDate = q.Get("end_date")
	filter.Format = q.Get("format")

	out, err := logexport.Export(h.Path, filter)
	if err != nil {
		http.Error(w, "Failed to read log file", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out))
}

// JSON handles GET /logs_json
func (h *LogHandler) JSON(w http.ResponseWriter, r *http.Request) {
	entries, err := logexport.ReadEntries(h.Path)
	if err != nil {
		JSONError(w, "Failed to read log file", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []logexport.Entry{}
	}
	JSONResponse(w, entries)
}
