package queue

import "time"

// Tipos de job y sus payloads JSON. Cada tipo viaja en un subject propio
// bajo "jobs.>" para poder filtrar y medir por tipo.

const (
	SubjectReminderTeam   = "jobs.reminder.team"
	SubjectReminderMember = "jobs.reminder.member"
	SubjectDigestTeam     = "jobs.digest.team"
	SubjectAutoReply      = "jobs.autoreply"
)

// KindFromSubject mapea un subject a la etiqueta de métrica del job.
func KindFromSubject(subject string) string {
	switch subject {
	case SubjectReminderTeam:
		return "reminder_team"
	case SubjectReminderMember:
		return "reminder_member"
	case SubjectDigestTeam:
		return "digest_team"
	case SubjectAutoReply:
		return "autoreply"
	default:
		return "unknown"
	}
}

// ReminderTeamJob pide el fan-out de recordatorios de un equipo. El worker
// lo expande en un ReminderMemberJob por miembro activo.
type ReminderTeamJob struct {
	TeamID  string    `json:"team_id"`
	ForDate time.Time `json:"for_date"`
}

// ReminderMemberJob es el recordatorio de un miembro concreto, con el
// carry-over del último update ya resuelto por el fan-out.
type ReminderMemberJob struct {
	TeamID           string   `json:"team_id"`
	MembershipID     string   `json:"membership_id"`
	PreviousTodos    []string `json:"previous_todos,omitempty"`
	PreviousBlockers []string `json:"previous_blockers,omitempty"`
}

// DigestTeamJob pide el envío del digest de un equipo para una fecha.
type DigestTeamJob struct {
	TeamID       string    `json:"team_id"`
	ForDate      time.Time `json:"for_date"`
	ManagersOnly bool      `json:"managers_only"`
}

// AutoReplyJob pide la respuesta de formato inválido a una reply ilegible.
type AutoReplyJob struct {
	TeamID string `json:"team_id"`
	To     string `json:"to"`
	Body   string `json:"body"`
}
