package email

import (
	"net"
	"strings"
	"time"
)

// SMTPDiag clasifica un fallo de envío. El worker de la cola decide con
// Temporary si el job se reencola o se descarta: un buzón inexistente o un
// rechazo por política no mejoran reintentando, un 4xx del relay sí.
type SMTPDiag struct {
	Code       string        // auth|tls|dial|timeout|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary  bool          // true si conviene reintentar
	RetryAfter time.Duration // 0 si el servidor no lo sugirió
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// DiagnoseSMTP inspecciona el error de un Send y retorna su diagnóstico.
// Clasifica por el texto del error porque go-mail no expone el código SMTP
// de forma estructurada.
func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: "unknown"}
	}
	s := strings.ToLower(err.Error())

	// Timeouts: relay lento o red caída, siempre reintenable.
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return SMTPDiag{Code: "timeout", Temporary: true}
	}
	if containsAny(s, "timeout", "i/o timeout", "deadline exceeded") {
		return SMTPDiag{Code: "timeout", Temporary: true}
	}

	// No se pudo abrir la conexión.
	if containsAny(s, "connection refused", "no such host", "dial tcp") {
		return SMTPDiag{Code: "dial", Temporary: true}
	}

	// TLS roto: reintentar no arregla un certificado inválido.
	if strings.Contains(s, "x509:") ||
		(strings.Contains(s, "tls") && containsAny(s, "handshake", "certificate")) {
		return SMTPDiag{Code: "tls"}
	}

	// Credenciales rechazadas.
	if containsAny(s, "5.7.8", "535", "username and password not accepted", "authentication failed") {
		return SMTPDiag{Code: "auth"}
	}

	// Throttling del relay (4.x.x): típico cuando el digest sale a muchos
	// destinatarios a la vez.
	if containsAny(s, "4.7.0", "rate limit", "try again later", "temporarily unavailable", "451", "421") {
		return SMTPDiag{Code: "rate_limited", Temporary: true}
	}

	// El buzón del miembro no existe (se fue de la empresa, typo al darlo
	// de alta).
	if containsAny(s, "5.1.1", "user unknown", "mailbox not found", "recipient address rejected") {
		return SMTPDiag{Code: "invalid_recipient"}
	}

	// Rechazo por política del receptor (DMARC/SPF del dominio del equipo).
	if containsAny(s, "5.7.1", "message rejected", "policy", "dmarc", "spf") {
		return SMTPDiag{Code: "rejected"}
	}

	if _, ok := err.(net.Error); ok {
		return SMTPDiag{Code: "network", Temporary: true}
	}
	return SMTPDiag{Code: "unknown"}
}
