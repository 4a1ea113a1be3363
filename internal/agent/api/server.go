// Package api exposes a minimal HTTP surface for operational visibility
// into the running agent: liveness, Prometheus metrics, and read-only
// debug dumps of AVS/PTL/timer state.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdkcentral/webconfig-agent/internal/agent/avs"
	"github.com/rdkcentral/webconfig-agent/internal/agent/ptl"
	"github.com/rdkcentral/webconfig-agent/internal/agent/timer"
)

// Server wires the debug/health routes over the live engine state.
type Server struct {
	router *mux.Router
	avs    *avs.Store
	ptl    *ptl.List
	timers *timer.Table
}

// New builds a Server. Any of avs/ptl/timers may be nil, in which case
// its debug route reports an empty result rather than panicking.
func New(store *avs.Store, pending *ptl.List, timers *timer.Table) *Server {
	s := &Server{router: mux.NewRouter(), avs: store, ptl: pending, timers: timers}
	s.routes()
	return s
}

// Handler returns the configured http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/avs", s.handleDebugAVS).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/ptl", s.handleDebugPTL).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/timers", s.handleDebugTimers).Methods(http.MethodGet)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDebugAVS(w http.ResponseWriter, r *http.Request) {
	if s.avs == nil {
		writeJSON(w, []any{})
		return
	}
	writeJSON(w, s.avs.Snapshot())
}

func (s *Server) handleDebugPTL(w http.ResponseWriter, r *http.Request) {
	if s.ptl == nil {
		writeJSON(w, []any{})
		return
	}
	writeJSON(w, s.ptl.Snapshot())
}

func (s *Server) handleDebugTimers(w http.ResponseWriter, r *http.Request) {
	if s.timers == nil {
		writeJSON(w, map[string]int{"active": 0})
		return
	}
	writeJSON(w, map[string]int{"active": s.timers.Len()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
