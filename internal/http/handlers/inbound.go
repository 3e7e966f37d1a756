package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	httpx "github.com/dropDatabas3/digestus/internal/http"
	"github.com/dropDatabas3/digestus/internal/inbound"
	"github.com/dropDatabas3/digestus/internal/metrics"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/queue"
	"github.com/dropDatabas3/digestus/internal/store/core"
)

// InboundHandler recibe el webhook del proveedor de correo entrante con las
// replies de los miembros y las convierte en status updates.
type InboundHandler struct {
	Store core.Store
	Queue Enqueuer
}

type inboundIn struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Receive maneja POST /v1/inbound.
//
// Respondemos 202 también para remitentes desconocidos o formato inválido:
// el proveedor reintenta los no-2xx y acá no hay nada que reintentar.
func (h *InboundHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var in inboundIn
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	log := logger.From(r.Context())

	toAddr := extractAddress(in.To)
	fromAddr := extractAddress(in.From)
	if toAddr == "" || fromAddr == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_payload", "from and to are required")
		return
	}

	team, err := h.Store.GetTeamByEmail(r.Context(), toAddr)
	if err != nil {
		if core.IsNotFound(err) {
			log.Warn("inbound for unknown team address", logger.Email(toAddr))
			httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
			return
		}
		log.Error("inbound team lookup failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not process message")
		return
	}

	member, err := h.Store.GetMembershipByEmail(r.Context(), team.ID, fromAddr)
	if err != nil {
		if core.IsNotFound(err) {
			log.Warn("inbound from non-member", logger.TeamSlug(team.Slug), logger.Email(fromAddr))
			httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
			return
		}
		log.Error("inbound member lookup failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not process message")
		return
	}

	reply, err := inbound.Parse(in.Text)
	if err != nil {
		if !errors.Is(err, inbound.ErrWrongFormat) {
			log.Error("inbound parse failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not process message")
			return
		}
		metrics.InboundRejected.Inc()
		log.Info("inbound rejected, bad format", logger.TeamSlug(team.Slug), logger.Email(fromAddr))

		enqErr := h.Queue.Enqueue(r.Context(), queue.SubjectAutoReply, queue.AutoReplyJob{
			TeamID: team.ID,
			To:     in.From,
			Body:   in.Text,
		})
		if enqErr != nil {
			log.Error("enqueue format error reply failed", logger.Err(enqErr))
		}
		httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "rejected"})
		return
	}

	forDate := localDate(team, time.Now())
	update := &types.Update{
		MembershipID: member.ID,
		ForDate:      forDate,
		Done:         reply.Done,
		WillDo:       reply.WillDo,
		Blockers:     reply.Blockers,
	}
	if err := h.Store.UpsertUpdate(r.Context(), update); err != nil {
		log.Error("upsert update failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not save update")
		return
	}

	metrics.InboundParsed.Inc()
	log.Info("update received",
		logger.TeamSlug(team.Slug),
		logger.Email(fromAddr),
		logger.ForDate(forDate),
	)
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// extractAddress saca la dirección de un header tipo "Name <addr>".
func extractAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	return strings.ToLower(s)
}
