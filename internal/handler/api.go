package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomsense/internal/log"
	"roomsense/internal/service"
)

// PresenceHandler serves the occupancy read model and the operator
// editing surface.
type PresenceHandler struct {
	svc *service.PresenceService
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(svc *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

// Routes registers all API routes on the mux
func (h *PresenceHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/presence", h.GetPresence)
	mux.HandleFunc("GET /api/presence/{room}", h.GetRoomPresence)
	mux.HandleFunc("GET /api/homeaway", h.GetHomeAway)
	mux.HandleFunc("GET /api/devices", h.GetDevices)
	mux.HandleFunc("GET /api/adapters", h.ListAdapters)
	mux.HandleFunc("POST /api/adapters/{name}/poll", h.TriggerPoll)
	mux.HandleFunc("GET /api/sightings", h.ListSightings)

	mux.HandleFunc("GET /api/mappings/rooms", h.GetRoomMappings)
	mux.HandleFunc("PUT /api/mappings/rooms/{key}", h.PutRoomMapping)
	mux.HandleFunc("DELETE /api/mappings/rooms/{key}", h.DeleteRoomMapping)
	mux.HandleFunc("GET /api/mappings/people", h.GetPersonMappings)
	mux.HandleFunc("PUT /api/mappings/people/{key}", h.PutPersonMapping)
	mux.HandleFunc("DELETE /api/mappings/people/{key}", h.DeletePersonMapping)

	mux.HandleFunc("POST /api/config/reload", h.ReloadConfig)
}

// GetPresence returns the latest per-room occupancy estimates
func (h *PresenceHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Presence(), http.StatusOK)
}

// GetRoomPresence returns the estimate for one room
func (h *PresenceHandler) GetRoomPresence(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	if room == "" {
		writeError(w, "Room required", "", http.StatusBadRequest)
		return
	}

	result, err := h.svc.RoomPresence(room)
	if err != nil {
		writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

// GetHomeAway returns the global occupancy gate state
func (h *PresenceHandler) GetHomeAway(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.HomeAway(), http.StatusOK)
}

// GetDevices returns the most recent device snapshot
func (h *PresenceHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Devices()
	if snap == nil {
		writeError(w, "No device snapshot yet", "the network source has not completed a poll", http.StatusNotFound)
		return
	}
	writeJSON(w, snap, http.StatusOK)
}

// ListAdapters returns adapter health information
func (h *PresenceHandler) ListAdapters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Adapters(), http.StatusOK)
}

// TriggerPoll manually runs one poll on a named adapter
func (h *PresenceHandler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, "Adapter name required", "", http.StatusBadRequest)
		return
	}

	if err := h.svc.TriggerPoll(r.Context(), name); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, "Not found", err.Error(), http.StatusNotFound)
			return
		}
		log.Warn("manual poll failed", "adapter", name, "error", err)
		writeError(w, "Poll failed", err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"status": "polled", "adapter": name}, http.StatusOK)
}

// ListSightings returns the device sighting history
func (h *PresenceHandler) ListSightings(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device")

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, "Invalid since parameter", "expected RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, "Invalid limit parameter", "", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	sightings, err := h.svc.Sightings(r.Context(), deviceID, since, limit)
	if err != nil {
		log.Warn("failed to list sightings", "error", err)
		writeError(w, "Failed to list sightings", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sightings, http.StatusOK)
}

// MappingRequest is the body for mapping updates
type MappingRequest struct {
	Value string `json:"value"`
}

// GetRoomMappings returns the merged association-point-to-room map
func (h *PresenceHandler) GetRoomMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.RoomMappings(), http.StatusOK)
}

// PutRoomMapping stores one room mapping override
func (h *PresenceHandler) PutRoomMapping(w http.ResponseWriter, r *http.Request) {
	h.putMapping(w, r, h.svc.SaveRoomMapping)
}

// DeleteRoomMapping removes one room mapping override
func (h *PresenceHandler) DeleteRoomMapping(w http.ResponseWriter, r *http.Request) {
	h.deleteMapping(w, r, h.svc.DeleteRoomMapping)
}

// GetPersonMappings returns the merged device-to-person map
func (h *PresenceHandler) GetPersonMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.PersonMappings(), http.StatusOK)
}

// PutPersonMapping stores one person mapping override
func (h *PresenceHandler) PutPersonMapping(w http.ResponseWriter, r *http.Request) {
	h.putMapping(w, r, h.svc.SavePersonMapping)
}

// DeletePersonMapping removes one person mapping override
func (h *PresenceHandler) DeletePersonMapping(w http.ResponseWriter, r *http.Request) {
	h.deleteMapping(w, r, h.svc.DeletePersonMapping)
}

// ReloadConfig re-reads the configuration file
func (h *PresenceHandler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reload(); err != nil {
		log.Warn("config reload failed", "error", err)
		writeError(w, "Reload failed", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "reloaded"}, http.StatusOK)
}

func (h *PresenceHandler) putMapping(w http.ResponseWriter, r *http.Request,
	save func(ctx context.Context, key, value string) error) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, "Mapping key required", "", http.StatusBadRequest)
		return
	}

	var req MappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := save(r.Context(), key, req.Value); err != nil {
		writeError(w, "Failed to save mapping", err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"key": key, "value": req.Value}, http.StatusOK)
}

func (h *PresenceHandler) deleteMapping(w http.ResponseWriter, r *http.Request,
	remove func(ctx context.Context, key string) error) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, "Mapping key required", "", http.StatusBadRequest)
		return
	}

	if err := remove(r.Context(), key); err != nil {
		writeError(w, "Failed to delete mapping", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
