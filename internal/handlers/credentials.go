package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"pingboard/internal/config"
)

// CredentialHandler persists the client auth configuration blob
type CredentialHandler struct {
	ConfigPath string
}

// NewCredentialHandler creates a handler writing to the auth config at path
func NewCredentialHandler(path string) *CredentialHandler {
	return &CredentialHandler{ConfigPath: path}
}

// UpdatePassword handles POST /update-password. The body carries a
// precomputed SHA-256 hex hash; the stored config blob is rewritten with it.
func (h *CredentialHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var update struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.Hash == "" {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	content := fmt.Sprintf(
		"const AUTH_CONFIG = {\n    username: 'admin',\n    passwordHash: '%s'\n};",
		update.Hash,
	)
	if err := config.SaveRaw(h.ConfigPath, content); err != nil {
		JSONError(w, "Failed to update config file", http.StatusInternalServerError)
		return
	}
	log.Printf("🔓 Credential hash updated")
	JSONResponse(w, map[string]bool{"success": true})
}

// UpdateConfig handles POST /update-config, persisting the raw auth
// config content the client maintains.
func (h *CredentialHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.Content == "" {
		JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := config.SaveRaw(h.ConfigPath, update.Content); err != nil {
		JSONError(w, "Failed to update config file", http.StatusInternalServerError)
		return
	}
	JSONResponse(w, map[string]bool{"success": true})
}
