package ws

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/KirkDiggler/rollroom/internal/services/session"
	"go.uber.org/zap"
)

// healthResponse is the body of GET /healthz
type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Routes returns the HTTP routes served by the gateway
func (h *Hub) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /healthz", h.serveHealth)
	return mux
}

// ServeWS upgrades the request to a websocket and attaches it to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug("websocket upgrade failed",
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err),
		)
		return
	}

	h.attach(conn)
}

func (h *Hub) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	out, err := h.sessions.ListSessions(r.Context(), &session.ListSessionsInput{})
	if err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "unavailable"})
		return
	}

	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		Sessions: len(out.SessionIDs),
	})
}

// checkOrigin matches the Origin header against the allowlist. Requests
// without one come from non-browser clients and are allowed.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowAll {
		return true
	}
	return h.origins[strings.ToLower(origin)]
}
