// Package queue implementa la cola de trabajo de Digestus sobre un NATS
// embebido con JetStream. El scheduler y el webhook publican jobs; el worker
// los consume con reintentos espaciados para los fallos transitorios.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/dropDatabas3/digestus/internal/observability/logger"
)

const (
	// StreamName es el stream work-queue de jobs.
	StreamName = "DIGESTUS_JOBS"
	// ConsumerName es el durable del worker.
	ConsumerName = "digestus-worker"
)

// Queue publica jobs en el stream.
type Queue struct {
	js jetstream.JetStream
}

// SetupStream crea (o actualiza) el stream work-queue y retorna la Queue.
func SetupStream(ctx context.Context, js jetstream.JetStream) (*Queue, error) {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"jobs.>"},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return &Queue{js: js}, nil
}

// Enqueue serializa el payload y lo publica en el subject dado.
func (q *Queue) Enqueue(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	if _, err := q.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	logger.From(ctx).Debug("job enqueued", logger.JobKind(KindFromSubject(subject)))
	return nil
}
