package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/digestus/internal/util"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - DOMINIO
// =================================================================================

// TeamID crea un campo para el ID del equipo.
func TeamID(v string) zap.Field {
	return zap.String("team_id", v)
}

// TeamSlug crea un campo para el slug del equipo.
func TeamSlug(v string) zap.Field {
	return zap.String("team_slug", v)
}

// MembershipID crea un campo para el ID de la membership.
func MembershipID(v string) zap.Field {
	return zap.String("membership_id", v)
}

// Email crea un campo para un email, enmascarado para no volcar PII en logs.
func Email(v string) zap.Field {
	return zap.String("email", util.MaskEmail(v))
}

// ForDate crea un campo para la fecha de un update/digest.
func ForDate(v time.Time) zap.Field {
	return zap.String("for_date", v.Format("2006-01-02"))
}

// JobKind crea un campo para el tipo de job encolado.
func JobKind(v string) zap.Field {
	return zap.String("job_kind", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
