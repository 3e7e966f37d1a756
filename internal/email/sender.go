package email

import (
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/digestus/internal/config"
	"github.com/dropDatabas3/digestus/internal/metrics"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
)

// Sender abstrae el transporte de correo saliente.
//
// A diferencia de un servicio con remitente fijo, en Digestus el From cambia
// por equipo (cada equipo tiene su propia casilla), así que viaja por llamada.
type Sender interface {
	Send(from string, to []string, subject, htmlBody, textBody string) error
}

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// NewSMTPSender crea un nuevo SMTPSender con los parámetros dados.
func NewSMTPSender(host string, port int, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

// FromConfig crea un SMTPSender desde la configuración SMTP del servicio.
func FromConfig(cfg config.SMTPConfig) *SMTPSender {
	s := NewSMTPSender(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.TLS != "" {
		s.TLSMode = cfg.TLS
	}
	s.InsecureSkipVerify = cfg.InsecureSkipVerify
	return s
}

// Send envía un email con contenido HTML y texto plano.
func (s *SMTPSender) Send(from string, to []string, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("SMTPSender"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.Int("recipients", len(to)),
	)

	log.Debug("sending email",
		logger.String("from", from),
		logger.String("subject", subject),
		logger.String("tls_mode", s.TLSMode),
	)

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)

	// Preferimos multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	start := time.Now()
	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	metrics.SendLatency.Observe(float64(time.Since(start).Milliseconds()))

	log.Info("email sent successfully")
	return nil
}
