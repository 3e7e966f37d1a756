package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/security/apikey"
)

// RequireAdminKey exige el header X-Admin-API-Key en las rutas de
// administración. Sin clave configurada todo el grupo admin queda cerrado.
func RequireAdminKey(verifier *apikey.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(r.Header.Get("X-Admin-API-Key")); err != nil {
				logger.From(r.Context()).Warn("admin key rejected", logger.Path(r.URL.Path))
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing admin API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSONError es la versión local para no importar el paquete http padre
// (evita el ciclo middlewares -> http -> middlewares).
func writeJSONError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":             code,
		"error_description": desc,
	})
}
