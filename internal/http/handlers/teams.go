package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	httpx "github.com/dropDatabas3/digestus/internal/http"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/queue"
	"github.com/dropDatabas3/digestus/internal/store/core"
)

// Enqueuer es lo que los handlers necesitan de la cola (triggers manuales).
type Enqueuer interface {
	Enqueue(ctx context.Context, subject string, payload any) error
}

// TeamsHandler implementa el CRUD de equipos y miembros, la consulta
// pública por miembro y los triggers manuales de reminder/digest.
type TeamsHandler struct {
	Store core.Store
	Queue Enqueuer
}

// ─── DTOs ───

type teamIn struct {
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Email           string `json:"email"`
	Timezone        string `json:"timezone"`
	DigestDays      []int  `json:"digest_days"`
	SendRemindersAt string `json:"send_reminders_at"`
	SendDigestAt    string `json:"send_digest_at"`
	Active          *bool  `json:"active"`
}

type teamOut struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Email           string    `json:"email"`
	Timezone        string    `json:"timezone"`
	DigestDays      []int     `json:"digest_days"`
	SendRemindersAt string    `json:"send_reminders_at"`
	SendDigestAt    string    `json:"send_digest_at"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type memberIn struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type memberOut struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toTeamOut(t *types.Team) teamOut {
	return teamOut{
		ID:              t.ID,
		Slug:            t.Slug,
		Name:            t.Name,
		Description:     t.Description,
		Email:           t.Email,
		Timezone:        t.Timezone,
		DigestDays:      t.DigestDays,
		SendRemindersAt: t.SendRemindersAt,
		SendDigestAt:    t.SendDigestAt,
		Active:          t.Active,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toMemberOut(m *types.Membership) memberOut {
	return memberOut{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      string(m.Role),
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
}

// ─── Validation ───

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func validateTeamIn(in *teamIn) (code, desc string) {
	if strings.TrimSpace(in.Name) == "" {
		return "invalid_team", "name is required"
	}
	if len(in.Name) > 25 {
		return "invalid_team", "name must be at most 25 characters"
	}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return "invalid_team", "a valid team email is required"
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return "invalid_team", "unknown timezone"
		}
	}
	for _, d := range in.DigestDays {
		if d < 0 || d > 6 {
			return "invalid_team", "digest_days entries must be 0 (Sunday) through 6 (Saturday)"
		}
	}
	if in.SendRemindersAt != "" && !hhmmRe.MatchString(in.SendRemindersAt) {
		return "invalid_team", "send_reminders_at must be HH:MM"
	}
	if in.SendDigestAt != "" && !hhmmRe.MatchString(in.SendDigestAt) {
		return "invalid_team", "send_digest_at must be HH:MM"
	}
	return "", ""
}

// ─── Public ───

// ListByMember maneja GET /v1/teams?member=email.
func (h *TeamsHandler) ListByMember(w http.ResponseWriter, r *http.Request) {
	member := strings.TrimSpace(r.URL.Query().Get("member"))
	if member == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_member", "query param member is required")
		return
	}

	teams, err := h.Store.ListTeamsByMember(r.Context(), member)
	if err != nil {
		logger.From(r.Context()).Error("list teams by member failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not list teams")
		return
	}

	out := make([]teamOut, 0, len(teams))
	for i := range teams {
		out = append(out, toTeamOut(&teams[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"teams": out})
}

// ─── Admin: teams ───

// Create maneja POST /v1/admin/teams.
func (h *TeamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in teamIn
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if code, desc := validateTeamIn(&in); code != "" {
		httpx.WriteError(w, http.StatusBadRequest, code, desc)
		return
	}

	team := &types.Team{
		Slug:            strings.TrimSpace(in.Slug),
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Timezone:        in.Timezone,
		DigestDays:      in.DigestDays,
		SendRemindersAt: in.SendRemindersAt,
		SendDigestAt:    in.SendDigestAt,
		Active:          true,
	}
	if in.Active != nil {
		team.Active = *in.Active
	}
	if team.Slug == "" {
		team.Slug = slugify(team.Name)
	}

	if err := h.Store.CreateTeam(r.Context(), team); err != nil {
		if core.IsConflict(err) {
			httpx.WriteError(w, http.StatusConflict, "team_exists", "a team with that slug, name or email already exists")
			return
		}
		logger.From(r.Context()).Error("create team failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not create team")
		return
	}

	logger.From(r.Context()).Info("team created", logger.TeamSlug(team.Slug))
	httpx.WriteJSON(w, http.StatusCreated, toTeamOut(team))
}

// List maneja GET /v1/admin/teams. Lista todos los equipos, también los
// inactivos o sin miembros, para poder administrarlos.
func (h *TeamsHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Store.ListTeams(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("list teams failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not list teams")
		return
	}
	out := make([]teamOut, 0, len(teams))
	for i := range teams {
		out = append(out, toTeamOut(&teams[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"teams": out})
}

// Get maneja GET /v1/admin/teams/{slug}.
func (h *TeamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTeamOut(team))
}

// Update maneja PUT /v1/admin/teams/{slug}.
func (h *TeamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}

	var in teamIn
	if !httpx.ReadJSON(w, r, &in) {
		return
	}

	if in.Name != "" {
		team.Name = strings.TrimSpace(in.Name)
	}
	if in.Email != "" {
		team.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if in.Description != "" {
		team.Description = in.Description
	}
	if in.Timezone != "" {
		team.Timezone = in.Timezone
	}
	if in.DigestDays != nil {
		team.DigestDays = in.DigestDays
	}
	if in.SendRemindersAt != "" {
		team.SendRemindersAt = in.SendRemindersAt
	}
	if in.SendDigestAt != "" {
		team.SendDigestAt = in.SendDigestAt
	}
	if in.Active != nil {
		team.Active = *in.Active
	}

	check := teamIn{
		Name: team.Name, Email: team.Email, Timezone: team.Timezone,
		DigestDays: team.DigestDays, SendRemindersAt: team.SendRemindersAt, SendDigestAt: team.SendDigestAt,
	}
	if code, desc := validateTeamIn(&check); code != "" {
		httpx.WriteError(w, http.StatusBadRequest, code, desc)
		return
	}

	if err := h.Store.UpdateTeam(r.Context(), team); err != nil {
		if core.IsConflict(err) {
			httpx.WriteError(w, http.StatusConflict, "team_exists", "a team with that name or email already exists")
			return
		}
		logger.From(r.Context()).Error("update team failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not update team")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTeamOut(team))
}

// ─── Admin: members ───

// AddMember maneja POST /v1/admin/teams/{slug}/members.
func (h *TeamsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}

	var in memberIn
	if !httpx.ReadJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_member", "a valid email is required")
		return
	}
	role := types.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if in.Role == "" {
		role = types.RoleMember
	}
	if !role.IsValid() {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_member", "role must be member or manager")
		return
	}

	m := &types.Membership{
		TeamID: team.ID,
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Role:   role,
		Active: true,
	}
	if err := h.Store.AddMembership(r.Context(), m); err != nil {
		if core.IsConflict(err) {
			httpx.WriteError(w, http.StatusConflict, "member_exists", "that email is already on the team")
			return
		}
		logger.From(r.Context()).Error("add member failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not add member")
		return
	}

	logger.From(r.Context()).Info("member added", logger.TeamSlug(team.Slug), logger.Email(m.Email))
	httpx.WriteJSON(w, http.StatusCreated, toMemberOut(m))
}

// ListMembers maneja GET /v1/admin/teams/{slug}/members.
func (h *TeamsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}
	members, err := h.Store.ListActiveMemberships(r.Context(), team.ID)
	if err != nil {
		logger.From(r.Context()).Error("list members failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not list members")
		return
	}
	out := make([]memberOut, 0, len(members))
	for i := range members {
		out = append(out, toMemberOut(&members[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"members": out})
}

// RemoveMember maneja DELETE /v1/admin/teams/{slug}/members/{id}.
func (h *TeamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	m, err := h.Store.GetMembership(r.Context(), id)
	if err != nil || m.TeamID != team.ID {
		httpx.WriteError(w, http.StatusNotFound, "member_not_found", "no such member on this team")
		return
	}
	if err := h.Store.RemoveMembership(r.Context(), id); err != nil {
		logger.From(r.Context()).Error("remove member failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Admin: triggers & updates ───

// TriggerReminders maneja POST /v1/admin/teams/{slug}/reminders: encola el
// fan-out de recordatorios de hoy sin esperar al scheduler.
func (h *TeamsHandler) TriggerReminders(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}
	forDate := localDate(team, time.Now())
	err := h.Queue.Enqueue(r.Context(), queue.SubjectReminderTeam, queue.ReminderTeamJob{
		TeamID:  team.ID,
		ForDate: forDate,
	})
	if err != nil {
		logger.From(r.Context()).Error("trigger reminders failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not enqueue reminders")
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]any{"status": "enqueued", "for_date": forDate.Format("2006-01-02")})
}

// TriggerDigest maneja POST /v1/admin/teams/{slug}/digest. Acepta date y
// managers_only opcionales en el body.
func (h *TeamsHandler) TriggerDigest(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}

	var in struct {
		Date         string `json:"date"`
		ManagersOnly bool   `json:"managers_only"`
	}
	if r.ContentLength > 0 && !httpx.ReadJSON(w, r, &in) {
		return
	}

	forDate := localDate(team, time.Now())
	if in.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", in.Date, team.Location())
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		forDate = d
	}

	err := h.Queue.Enqueue(r.Context(), queue.SubjectDigestTeam, queue.DigestTeamJob{
		TeamID:       team.ID,
		ForDate:      forDate,
		ManagersOnly: in.ManagersOnly,
	})
	if err != nil {
		logger.From(r.Context()).Error("trigger digest failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not enqueue digest")
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]any{"status": "enqueued", "for_date": forDate.Format("2006-01-02")})
}

// ListUpdates maneja GET /v1/admin/teams/{slug}/updates?date=YYYY-MM-DD.
func (h *TeamsHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFromPath(w, r)
	if !ok {
		return
	}

	date := localDate(team, time.Now())
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.ParseInLocation("2006-01-02", q, team.Location())
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	entries, err := h.Store.ListTeamUpdates(r.Context(), team.ID, date)
	if err != nil {
		logger.From(r.Context()).Error("list updates failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not list updates")
		return
	}

	type updateOut struct {
		Member   memberOut `json:"member"`
		Done     []string  `json:"done,omitempty"`
		WillDo   []string  `json:"will_do,omitempty"`
		Blockers []string  `json:"blockers,omitempty"`
		Sent     bool      `json:"sent"`
	}
	out := make([]updateOut, 0, len(entries))
	for i := range entries {
		e := entries[i]
		uo := updateOut{Member: toMemberOut(&e.Membership)}
		if e.Update != nil {
			uo.Sent = true
			uo.Done = e.Update.Done
			uo.WillDo = e.Update.WillDo
			uo.Blockers = e.Update.Blockers
		}
		out = append(out, uo)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"date":    date.Format("2006-01-02"),
		"updates": out,
	})
}

// ─── Helpers ───

func (h *TeamsHandler) teamFromPath(w http.ResponseWriter, r *http.Request) (*types.Team, bool) {
	slug := chi.URLParam(r, "slug")
	team, err := h.Store.GetTeamBySlug(r.Context(), slug)
	if err != nil {
		if core.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "team_not_found", "no team with that slug")
			return nil, false
		}
		logger.From(r.Context()).Error("get team failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load team")
		return nil, false
	}
	return team, true
}

func localDate(team *types.Team, now time.Time) time.Time {
	l := now.In(team.Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
