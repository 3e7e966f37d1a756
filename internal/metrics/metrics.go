package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus del pipeline de correo y del scheduler. Viven en un
// paquete propio para evitar ciclos de import entre queue, scheduler y HTTP.

var (
	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digestus_emails_sent_total",
		Help: "Correos enviados con éxito, por tipo (reminder, digest, autoreply)",
	}, []string{"kind"})

	EmailsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digestus_emails_failed_total",
		Help: "Correos que fallaron en el envío, por tipo",
	}, []string{"kind"})

	JobsRetried = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digestus_jobs_retried_total",
		Help: "Jobs reencolados tras un fallo transitorio, por tipo",
	}, []string{"kind"})

	JobsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digestus_jobs_dropped_total",
		Help: "Jobs descartados por agotar reintentos o por payload inválido",
	}, []string{"kind"})

	InboundParsed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestus_inbound_parsed_total",
		Help: "Correos entrantes parseados correctamente",
	})

	InboundRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestus_inbound_rejected_total",
		Help: "Correos entrantes rechazados por formato inválido",
	})

	RemindersScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestus_reminders_scheduled_total",
		Help: "Tandas de recordatorios encoladas por el scheduler",
	})

	DigestsScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digestus_digests_scheduled_total",
		Help: "Digests encolados por el scheduler",
	})

	SendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "digestus_email_send_latency_ms",
		Help:    "Latencia del envío SMTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Register registers all digestus metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		EmailsSent, EmailsFailed, JobsRetried, JobsDropped,
		InboundParsed, InboundRejected,
		RemindersScheduled, DigestsScheduled,
		SendLatency,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
