package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ventana-core/internal/account"
	"github.com/nerrad567/ventana-core/internal/command"
	"github.com/nerrad567/ventana-core/internal/device"
)

// registerDeviceRequest is the body of POST /devices.
type registerDeviceRequest struct {
	DeviceID string `json:"deviceId"`
	Owner    string `json:"owner"`
}

// commandRequest is the body of POST /devices/{id}/command.
type commandRequest struct {
	Command string `json:"command"`
}

// handleListDevices returns all devices, most recently updated first.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device record.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := s.devices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("getting device failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleRegisterDevice creates a default record, optionally owned by an
// existing user.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" {
		writeBadRequest(w, "deviceId is required")
		return
	}

	if req.Owner != "" {
		if _, err := s.users.GetByID(r.Context(), req.Owner); err != nil {
			if errors.Is(err, account.ErrUserNotFound) {
				writeBadRequest(w, "owner not found")
				return
			}
			s.logger.Error("looking up owner failed", "owner", req.Owner, "error", err)
			writeInternalError(w, "failed to register device")
			return
		}
	}

	st, err := s.devices.Register(r.Context(), req.DeviceID, req.Owner)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, "device already registered")
		case errors.Is(err, device.ErrInvalidDeviceID):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("registering device failed", "device_id", req.DeviceID, "error", err)
			writeInternalError(w, "failed to register device")
		}
		return
	}

	s.logger.Info("device registered", "device_id", st.DeviceID, "owner", st.OwnerID)
	writeJSON(w, http.StatusCreated, st)
}

// handleDeviceHistory returns the device's history, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, capped at 200)
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing history failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to list history")
		return
	}
	if entries == nil {
		entries = []device.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

// handleDeviceCommand publishes an app command to the device.
// The device reports the resulting state over MQTT, so the response only
// acknowledges that the command left for the broker.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}
	if s.deviceID != "" && id != s.deviceID {
		writeNotFound(w, "device not found")
		return
	}
	if s.commands == nil {
		writeUnavailable(w, "command transport not configured")
		return
	}

	ctrl, err := s.commands.Send(r.Context(), req.Command)
	if err != nil {
		switch {
		case errors.Is(err, command.ErrUnknownCommand):
			writeBadRequest(w, "unknown command: "+req.Command)
		case errors.Is(err, command.ErrTransportUnavailable):
			writeUnavailable(w, "MQTT broker unavailable")
		default:
			s.logger.Error("publishing command failed", "device_id", id, "command", req.Command, "error", err)
			writeInternalError(w, "failed to publish command")
		}
		return
	}

	s.logger.Info("command published", "device_id", id, "command", req.Command, "topic", ctrl.Topic)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"command": req.Command,
		"topic":   ctrl.Topic,
		"payload": ctrl.Payload,
	})
}
