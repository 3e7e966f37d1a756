// Package handlers implementa los endpoints HTTP de digestus.
package handlers

import (
	"context"
	"net/http"
	"time"

	httpx "github.com/dropDatabas3/digestus/internal/http"
	"github.com/dropDatabas3/digestus/internal/store/core"
)

// HealthHandler expone healthz y readyz.
type HealthHandler struct {
	Store   core.Store
	Version string
}

// Healthz: liveness. Siempre 200 mientras el proceso responda.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.Version,
	})
}

// Readyz: readiness. Falla si el store no responde al ping.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "store unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
