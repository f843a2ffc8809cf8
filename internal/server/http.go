package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/logging"
)

// routes registers the feed endpoints. None of them writes to a device.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /api/devices", logRequests(http.HandlerFunc(s.handleDevices)))
	mux.Handle("GET /healthz", logRequests(http.HandlerFunc(s.handleHealth)))
	return mux
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	msg, err := s.hub.Snapshot(r.Context())
	if err != nil {
		status := http.StatusServiceUnavailable
		if !errors.Is(err, ErrHubStopped) {
			status = http.StatusRequestTimeout
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	applied, discarded := s.hub.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"devices":   s.cat.Len(),
		"clients":   s.hub.ClientCount(),
		"applied":   applied,
		"discarded": discarded,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request at debug level. It is not used on /ws
// because the recorder would hide the connection from the upgrader.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
