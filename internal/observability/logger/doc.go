// Package logger provee un logger Zap singleton con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request/job puede llevar su logger "scoped" con
//     campos propios (request_id, team_slug, job_id) sin crear otro core.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//   - Niveles: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Uso
//
// Inicialización (una vez, en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),
//	    Level: os.Getenv("LOG_LEVEL"),
//	})
//	defer logger.Sync()
//
// En handlers/jobs (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("reminder sent", logger.TeamSlug(team.Slug))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("scheduler started")
package logger
