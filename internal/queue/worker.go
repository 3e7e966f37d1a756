package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/email"
	"github.com/dropDatabas3/digestus/internal/metrics"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/store/core"
)

// WorkerConfig parametriza los reintentos del consumer.
type WorkerConfig struct {
	// MaxDeliver: entregas totales por job (1 inicial + reintentos).
	MaxDeliver int
	// RetryDelay entre reintentos de un job fallido.
	RetryDelay time.Duration
}

// Worker consume los jobs del stream y los despacha por subject. Los fallos
// se reencolan con NakWithDelay hasta agotar MaxDeliver.
type Worker struct {
	js    jetstream.JetStream
	queue *Queue
	store core.Store
	mail  *email.Service
	cfg   WorkerConfig

	cc jetstream.ConsumeContext
}

// NewWorker arma un Worker sobre la Queue, el store y el servicio de mail.
func NewWorker(q *Queue, st core.Store, mail *email.Service, cfg WorkerConfig) *Worker {
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 6
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Minute
	}
	return &Worker{js: q.js, queue: q, store: st, mail: mail, cfg: cfg}
}

// Start crea el consumer durable y arranca el loop de consumo. Retorna
// cuando el consumer quedó suscripto; el procesamiento sigue en background
// hasta Stop.
func (w *Worker) Start(ctx context.Context) error {
	cons, err := w.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:    ConsumerName,
		AckPolicy:  jetstream.AckExplicitPolicy,
		MaxDeliver: w.cfg.MaxDeliver,
		AckWait:    2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", ConsumerName, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		w.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("start consume: %w", err)
	}
	w.cc = cc

	logger.L().Info("queue worker started",
		logger.Component("Worker"),
		logger.Int("max_deliver", w.cfg.MaxDeliver),
	)
	return nil
}

// Stop detiene el consumo. Los jobs pendientes quedan en el stream.
func (w *Worker) Stop() {
	if w.cc != nil {
		w.cc.Stop()
	}
}

func (w *Worker) handle(msg jetstream.Msg) {
	subject := msg.Subject()
	kind := KindFromSubject(subject)
	ctx := logger.ToContext(context.Background(), logger.L().With(
		logger.Component("Worker"),
		logger.JobKind(kind),
	))
	log := logger.From(ctx)

	var err error
	switch subject {
	case SubjectReminderTeam:
		err = decodeAnd(ctx, msg, w.handleReminderTeam)
	case SubjectReminderMember:
		err = decodeAnd(ctx, msg, w.handleReminderMember)
	case SubjectDigestTeam:
		err = decodeAnd(ctx, msg, w.handleDigestTeam)
	case SubjectAutoReply:
		err = decodeAnd(ctx, msg, w.handleAutoReply)
	default:
		log.Warn("unknown job subject", logger.String("subject", subject))
		metrics.JobsDropped.WithLabelValues(kind).Inc()
		_ = msg.Term()
		return
	}

	if err == nil {
		_ = msg.Ack()
		return
	}

	// Payload roto: reintentar no sirve.
	if isDecodeError(err) {
		log.Error("invalid job payload, dropping", logger.Err(err))
		metrics.JobsDropped.WithLabelValues(kind).Inc()
		_ = msg.Term()
		return
	}

	// Fallos permanentes de envío (auth, destinatario inválido, rechazo por
	// política) tampoco mejoran con reintentos.
	if errors.Is(err, email.ErrSendFailed) {
		if diag := email.DiagnoseSMTP(err); !diag.Temporary {
			log.Error("permanent send failure, dropping",
				logger.Err(err),
				logger.String("smtp_code", diag.Code),
			)
			metrics.JobsDropped.WithLabelValues(kind).Inc()
			_ = msg.Term()
			return
		}
	}
	if errors.Is(err, email.ErrTemplateRender) || errors.Is(err, email.ErrInvalidInput) {
		log.Error("unprocessable job, dropping", logger.Err(err))
		metrics.JobsDropped.WithLabelValues(kind).Inc()
		_ = msg.Term()
		return
	}

	meta, metaErr := msg.Metadata()
	delivered := 1
	if metaErr == nil {
		delivered = int(meta.NumDelivered)
	}
	if delivered >= w.cfg.MaxDeliver {
		log.Error("job failed, retries exhausted", logger.Err(err), logger.Int("delivered", delivered))
		metrics.JobsDropped.WithLabelValues(kind).Inc()
		_ = msg.Term()
		return
	}

	log.Warn("job failed, retrying",
		logger.Err(err),
		logger.Int("delivered", delivered),
		logger.String("retry_in", w.cfg.RetryDelay.String()),
	)
	metrics.JobsRetried.WithLabelValues(kind).Inc()
	_ = msg.NakWithDelay(w.cfg.RetryDelay)
}

// decodeError marca errores de deserialización de payload.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode job: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

func decodeAnd[T any](ctx context.Context, msg jetstream.Msg, fn func(context.Context, T) error) error {
	var job T
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		return &decodeError{err: err}
	}
	return fn(ctx, job)
}

// ─── Handlers ───

// handleReminderTeam expande el job de equipo en un job por miembro activo.
// Si el miembro ya tiene update de hoy con to-dos o blockers pendientes, el
// recordatorio se los devuelve para confirmar.
func (w *Worker) handleReminderTeam(ctx context.Context, job ReminderTeamJob) error {
	team, err := w.store.GetTeamByID(ctx, job.TeamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}

	members, err := w.store.ListActiveMemberships(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("list memberships: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	// Carry-over: el update de hoy de cada miembro, si ya mandó uno.
	carry := map[string]*types.Update{}
	updates, err := w.store.ListTeamUpdates(ctx, team.ID, job.ForDate)
	if err != nil {
		return fmt.Errorf("list updates: %w", err)
	}
	for _, mu := range updates {
		if mu.Update.HasCarryOver() {
			carry[mu.Membership.ID] = mu.Update
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, m := range members {
		m := m
		g.Go(func() error {
			next := ReminderMemberJob{TeamID: team.ID, MembershipID: m.ID}
			if u := carry[m.ID]; u != nil {
				next.PreviousTodos = u.WillDo
				next.PreviousBlockers = u.Blockers
			}
			return w.queue.Enqueue(gctx, SubjectReminderMember, next)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fan out reminders: %w", err)
	}

	logger.From(ctx).Info("reminders fanned out",
		logger.TeamSlug(team.Slug),
		logger.Count(len(members)),
	)
	return nil
}

func (w *Worker) handleReminderMember(ctx context.Context, job ReminderMemberJob) error {
	team, err := w.store.GetTeamByID(ctx, job.TeamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	member, err := w.store.GetMembership(ctx, job.MembershipID)
	if err != nil {
		if core.IsNotFound(err) {
			// El miembro se fue entre el fan-out y el envío.
			return nil
		}
		return fmt.Errorf("get membership: %w", err)
	}
	if !member.Active {
		return nil
	}

	return w.mail.SendMemberReminder(ctx, email.ReminderRequest{
		Team:             *team,
		Membership:       *member,
		PreviousTodos:    job.PreviousTodos,
		PreviousBlockers: job.PreviousBlockers,
	})
}

func (w *Worker) handleDigestTeam(ctx context.Context, job DigestTeamJob) error {
	team, err := w.store.GetTeamByID(ctx, job.TeamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	entries, err := w.store.ListTeamUpdates(ctx, team.ID, job.ForDate)
	if err != nil {
		return fmt.Errorf("list updates: %w", err)
	}

	err = w.mail.SendTeamDigest(ctx, email.DigestRequest{
		Team:         *team,
		ForDate:      job.ForDate,
		Entries:      entries,
		ManagersOnly: job.ManagersOnly,
	})
	if errors.Is(err, email.ErrNoUpdates) {
		// Nada que mandar no es un fallo del job.
		return nil
	}
	return err
}

func (w *Worker) handleAutoReply(ctx context.Context, job AutoReplyJob) error {
	team, err := w.store.GetTeamByID(ctx, job.TeamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}
	return w.mail.SendFormatError(ctx, email.FormatErrorRequest{
		Team: *team,
		To:   job.To,
		Body: job.Body,
	})
}
