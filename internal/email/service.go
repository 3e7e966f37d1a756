package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/metrics"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/render"
)

// ─── Errors ───

var (
	ErrTemplateRender = errors.New("email: template render failed")
	ErrSendFailed     = errors.New("email: send failed")
	ErrInvalidInput   = errors.New("email: invalid input")
	ErrNoUpdates      = errors.New("email: no updates for team and date")
)

// ─── Requests ───

// ReminderRequest describe un recordatorio individual a un miembro.
// Las listas previas vienen del último update del miembro y se confirman
// en el cuerpo del correo.
type ReminderRequest struct {
	Team             types.Team
	Membership       types.Membership
	PreviousTodos    []string
	PreviousBlockers []string
}

// DigestRequest describe el digest de un equipo para una fecha.
type DigestRequest struct {
	Team    types.Team
	ForDate time.Time
	Entries []types.MemberUpdate

	// ManagersOnly restringe los destinatarios a los managers del equipo
	// (la copia que sale una hora antes del digest general).
	ManagersOnly bool
}

// FormatErrorRequest describe la auto-respuesta a una reply ilegible.
type FormatErrorRequest struct {
	Team types.Team
	To   string // remitente original de la reply
	Body string // texto recibido, se devuelve citado
}

// ─── Service ───

// Service compone y envía los correos del dominio. El transporte es
// inyectable para poder testear sin SMTP real.
type Service struct {
	sender Sender
}

// NewService crea un Service sobre el Sender dado.
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

const reminderSubject = "What did you get done today?"

// SendMemberReminder envía el recordatorio diario a un miembro. El cuerpo
// confirma los to-dos y blockers pendientes del update anterior.
func (s *Service) SendMemberReminder(ctx context.Context, req ReminderRequest) error {
	log := logger.From(ctx).With(
		logger.Op("SendMemberReminder"),
		logger.TeamSlug(req.Team.Slug),
		logger.Email(req.Membership.Email),
	)

	if req.Membership.Email == "" {
		return ErrInvalidInput
	}

	body, err := render.Render(render.Context{
		PreviousTodos:    req.PreviousTodos,
		PreviousBlockers: req.PreviousBlockers,
		TeamEmail:        req.Team.Email,
		TeamName:         req.Team.Name,
	})
	if err != nil {
		log.Error("reminder body render failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	from := fmt.Sprintf("Digestus Reminder <%s>", req.Team.Email)
	if err := s.sender.Send(from, []string{req.Membership.Recipient()}, reminderSubject, "", body); err != nil {
		metrics.EmailsFailed.WithLabelValues("reminder").Inc()
		log.Error("reminder send failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	metrics.EmailsSent.WithLabelValues("reminder").Inc()
	log.Info("reminder sent")
	return nil
}

// SendTeamDigest envía el digest del día a todos los miembros activos del
// equipo (o solo a los managers si ManagersOnly). Si nadie mandó update,
// no se envía nada y retorna ErrNoUpdates.
func (s *Service) SendTeamDigest(ctx context.Context, req DigestRequest) error {
	log := logger.From(ctx).With(
		logger.Op("SendTeamDigest"),
		logger.TeamSlug(req.Team.Slug),
		logger.ForDate(req.ForDate),
		logger.Bool("managers_only", req.ManagersOnly),
	)

	if req.Team.Email == "" {
		return ErrInvalidInput
	}

	anyUpdate := false
	for _, e := range req.Entries {
		if e.Update != nil {
			anyUpdate = true
			break
		}
	}
	if !anyUpdate {
		log.Info("no updates for date, skipping digest")
		return ErrNoUpdates
	}

	var recipients []string
	for _, e := range req.Entries {
		if req.ManagersOnly && !e.Membership.IsManager() {
			continue
		}
		recipients = append(recipients, e.Membership.Recipient())
	}
	if len(recipients) == 0 {
		log.Info("no recipients for digest")
		return nil
	}

	date := req.ForDate.In(req.Team.Location()).Format("Monday, Jan 2, 2006")

	type entry struct {
		Name   string
		Update *types.Update
	}
	data := struct {
		TeamName string
		Date     string
		Entries  []entry
	}{TeamName: req.Team.Name, Date: date}
	for _, e := range req.Entries {
		name := e.Membership.Name
		if strings.TrimSpace(name) == "" {
			name = e.Membership.Email
		}
		data.Entries = append(data.Entries, entry{Name: name, Update: e.Update})
	}

	var text, html bytes.Buffer
	if err := digestText.Execute(&text, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	if err := digestHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	from := fmt.Sprintf("Digestus Digest <%s>", req.Team.Email)
	subject := fmt.Sprintf("Digest for %s for %s", req.Team.Name, date)

	if err := s.sender.Send(from, recipients, subject, html.String(), text.String()); err != nil {
		metrics.EmailsFailed.WithLabelValues("digest").Inc()
		log.Error("digest send failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	metrics.EmailsSent.WithLabelValues("digest").Inc()
	log.Info("digest sent", logger.Count(len(recipients)))
	return nil
}

// SendFormatError responde a una reply que no pudo parsearse, citando el
// texto recibido.
func (s *Service) SendFormatError(ctx context.Context, req FormatErrorRequest) error {
	log := logger.From(ctx).With(
		logger.Op("SendFormatError"),
		logger.TeamSlug(req.Team.Slug),
		logger.Email(req.To),
	)

	if req.To == "" {
		return ErrInvalidInput
	}

	var body bytes.Buffer
	if err := formatError.Execute(&body, struct{ Body string }{Body: req.Body}); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	from := fmt.Sprintf("Digestus <%s>", req.Team.Email)
	if err := s.sender.Send(from, []string{req.To}, "FORMAT ERROR!!", "", body.String()); err != nil {
		metrics.EmailsFailed.WithLabelValues("autoreply").Inc()
		log.Error("format error reply send failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	metrics.EmailsSent.WithLabelValues("autoreply").Inc()
	log.Info("format error reply sent")
	return nil
}
