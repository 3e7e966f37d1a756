// Package types define tipos de dominio compartidos entre paquetes.
package types

import (
	"strings"
	"time"
)

// Role de un miembro dentro de un equipo.
type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
)

// IsValid retorna true si el rol es válido.
func (r Role) IsValid() bool {
	switch r {
	case "", RoleMember, RoleManager:
		return true
	}
	return false
}

// Team representa un equipo que recibe reminders y digests.
type Team struct {
	ID          string
	Slug        string
	Name        string // único, máx 25 chars
	Description string
	Email       string // dirección única del equipo (from + inbound)
	Timezone    string // nombre IANA, ej "Asia/Manila". Default "UTC".

	// DigestDays son los días de la semana (0=domingo … 6=sábado) en los que
	// el equipo recibe reminder + digest. Vacío ⇒ equipo inactivo para envíos.
	DigestDays []int

	// Horarios locales "HH:MM" (wall clock en Timezone).
	SendRemindersAt string
	SendDigestAt    string

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SendsOn retorna true si weekday (0=domingo … 6=sábado) está en DigestDays.
func (t *Team) SendsOn(weekday int) bool {
	for _, d := range t.DigestDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// Location resuelve la zona horaria del equipo. Fallback a UTC si el nombre
// es inválido o vacío.
func (t *Team) Location() *time.Location {
	tz := strings.TrimSpace(t.Timezone)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Membership vincula a una persona con un equipo. Única por (team, email).
type Membership struct {
	ID        string
	TeamID    string
	Name      string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// Recipient formatea el destinatario como "Nombre <email>".
func (m *Membership) Recipient() string {
	if strings.TrimSpace(m.Name) == "" {
		return m.Email
	}
	return m.Name + " <" + m.Email + ">"
}

// IsManager retorna true si el miembro es project manager del equipo.
func (m *Membership) IsManager() bool { return m.Role == RoleManager }

// Update es el status update de un miembro para una fecha. Hay a lo sumo
// uno por (membership, fecha); los reenvíos pisan el anterior.
type Update struct {
	ID           string
	MembershipID string
	ForDate      time.Time // solo se usa la parte fecha, en el timezone del equipo

	// Listas ordenadas tal como llegaron en la reply. Sin dedup ni reorden.
	Done     []string // líneas "-": lo que se hizo
	WillDo   []string // líneas "+": lo que se va a hacer
	Blockers []string // líneas "*": bloqueos

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCarryOver retorna true si el update tiene to-dos o blockers que deban
// ser confirmados en el próximo reminder.
func (u *Update) HasCarryOver() bool {
	return u != nil && (len(u.WillDo) > 0 || len(u.Blockers) > 0)
}

// MemberUpdate empareja un miembro con su update (posiblemente nil) para el
// armado del digest.
type MemberUpdate struct {
	Membership Membership
	Update     *Update
}
