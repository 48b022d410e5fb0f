package server

import (
	"net/http"
	"strconv"

	"github.com/claude/pulseboard/internal/connections"
	"github.com/go-chi/chi/v5"
)

// handleConnections refreshes and returns the aggregated connection view.
// ?cached=true returns the last state without contacting the upstream.
func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		writeJSON(w, http.StatusOK, s.conns.State())
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force_reconnect"))
	writeJSON(w, http.StatusOK, s.conns.Refresh(r.Context(), force))
}

func (s *Server) serviceParam(w http.ResponseWriter, r *http.Request) (connections.Service, bool) {
	svc, err := connections.ParseService(chi.URLParam(r, "service"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return "", false
	}
	return svc, true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.serviceParam(w, r)
	if !ok {
		return
	}
	if err := s.conns.Logout(r.Context(), svc); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "state": s.conns.State()})
		return
	}
	writeJSON(w, http.StatusOK, s.conns.State())
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := s.conns.LogoutAll(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "state": s.conns.State()})
		return
	}
	writeJSON(w, http.StatusOK, s.conns.State())
}

// handleLogin returns the provider authorization URL, or redirects to it
// when ?redirect=true.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.serviceParam(w, r)
	if !ok {
		return
	}
	u, err := s.conns.LoginURL(r.Context(), svc)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if redirect, _ := strconv.ParseBool(r.URL.Query().Get("redirect")); redirect {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorization_url": u})
}
