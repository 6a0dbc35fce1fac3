// Package api provides the HTTP status API of the gateway.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helgesson/go-battgw/internal/config"
	"github.com/helgesson/go-battgw/internal/decoder"
	"github.com/helgesson/go-battgw/internal/device"
)

// StateProvider exposes the gateway's device bookkeeping to the API.
type StateProvider interface {
	Devices() []device.Info
	Device(id string) (device.Info, bool)
	DeviceStates(id string) map[string]decoder.DeviceState
}

// Server is the HTTP API server.
type Server struct {
	config    *config.Config
	server    *http.Server
	router    *mux.Router
	provider  StateProvider
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(cfg *config.Config, provider StateProvider) *Server {
	apiServer := &Server{
		config:    cfg,
		router:    mux.NewRouter(),
		provider:  provider,
		logger:    log.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
	apiServer.setupRoutes()
	return apiServer
}

// setupRoutes configures all API endpoint handlers.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/devices", s.handleListDevices).Methods("GET")
	api.HandleFunc("/devices/{id}", s.handleGetDevice).Methods("GET")
	api.HandleFunc("/devices/{id}/state", s.handleGetDeviceState).Methods("GET")
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.API.Host, s.config.API.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("host", s.config.API.Host).
			Int("port", s.config.API.Port).
			Msg("Starting HTTP API server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP API server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	return nil
}

// handleStatus returns gateway status information.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	devices := s.provider.Devices()
	online := 0
	for _, d := range devices {
		if d.Status == device.StatusOnline {
			online++
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"status":        "ok",
		"uptime":        time.Since(s.startTime).String(),
		"deviceCount":   len(devices),
		"devicesOnline": online,
	}, http.StatusOK)
}

// handleListDevices returns a list of all bridged devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.provider.Devices()

	result := make([]map[string]interface{}, 0, len(devices))
	for _, d := range devices {
		result = append(result, deviceJSON(d))
	}

	s.writeJSON(w, map[string]interface{}{
		"devices": result,
		"count":   len(result),
	}, http.StatusOK)
}

// handleGetDevice returns information about one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, found := s.provider.Device(id)
	if !found {
		s.writeError(w, "Device not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, deviceJSON(d), http.StatusOK)
}

// handleGetDeviceState returns the decoded state of one device, grouped by
// sub-message.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, found := s.provider.Device(id); !found {
		s.writeError(w, "Device not found", http.StatusNotFound)
		return
	}

	states := s.provider.DeviceStates(id)
	if states == nil {
		states = map[string]decoder.DeviceState{}
	}
	s.writeJSON(w, states, http.StatusOK)
}

func deviceJSON(d device.Info) map[string]interface{} {
	return map[string]interface{}{
		"id":             d.ID,
		"type":           d.Type,
		"name":           d.Name,
		"status":         d.Status.String(),
		"lastSeen":       d.LastSeen,
		"framesReceived": d.FramesReceived,
		"commandsSent":   d.CommandsSent,
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode error response")
	}
}
