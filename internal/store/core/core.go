// Package core define las interfaces de persistencia y sus errores.
// Los drivers (pg, memory) implementan Store; el resto del sistema solo
// conoce estas interfaces.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/digestus/internal/domain/types"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un duplicado (slug/email/nombre ya usados, o
	// membership repetida para el mismo equipo).
	ErrConflict = errors.New("conflict")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// TeamStore son las operaciones sobre equipos.
type TeamStore interface {
	CreateTeam(ctx context.Context, t *types.Team) error
	UpdateTeam(ctx context.Context, t *types.Team) error
	GetTeamByID(ctx context.Context, id string) (*types.Team, error)
	GetTeamBySlug(ctx context.Context, slug string) (*types.Team, error)
	GetTeamByEmail(ctx context.Context, email string) (*types.Team, error)

	// ListTeams retorna todos los equipos, activos o no. Para el listado
	// de administración.
	ListTeams(ctx context.Context) ([]types.Team, error)

	// ListActiveTeams retorna los equipos activos con al menos un día de
	// envío configurado y un miembro activo. El scheduler itera sobre
	// esto en cada tick.
	ListActiveTeams(ctx context.Context) ([]types.Team, error)

	// ListTeamsByMember retorna los equipos donde el email es miembro activo.
	ListTeamsByMember(ctx context.Context, email string) ([]types.Team, error)
}

// MembershipStore son las operaciones sobre memberships.
type MembershipStore interface {
	AddMembership(ctx context.Context, m *types.Membership) error
	RemoveMembership(ctx context.Context, id string) error
	GetMembership(ctx context.Context, id string) (*types.Membership, error)
	GetMembershipByEmail(ctx context.Context, teamID, email string) (*types.Membership, error)

	// ListActiveMemberships retorna los miembros activos de un equipo en
	// orden de creación.
	ListActiveMemberships(ctx context.Context, teamID string) ([]types.Membership, error)
}

// UpdateStore son las operaciones sobre status updates.
type UpdateStore interface {
	// UpsertUpdate crea o pisa el update de (membership, fecha). Las listas
	// reemplazan por completo a las anteriores.
	UpsertUpdate(ctx context.Context, u *types.Update) error

	// GetUpdateForDate retorna el update de un miembro para una fecha, o
	// ErrNotFound.
	GetUpdateForDate(ctx context.Context, membershipID string, date time.Time) (*types.Update, error)

	// ListTeamUpdates retorna cada miembro activo del equipo junto a su
	// update para la fecha (nil si no reportó). Insumo del digest.
	ListTeamUpdates(ctx context.Context, teamID string, date time.Time) ([]types.MemberUpdate, error)
}

// Store agrupa todas las operaciones de persistencia.
type Store interface {
	TeamStore
	MembershipStore
	UpdateStore

	Ping(ctx context.Context) error
	Close()
}
