// Package pg implementa core.Store sobre Postgres (pgx/v5 + pgxpool).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/store/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ pool *pgxpool.Pool }

// Config tuning opcional del pool.
type Config struct {
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MinIdleConns > 0 {
		pcfg.MinConns = int32(cfg.MinIdleConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Arranque no bloqueante: si la DB está caída igual levantamos el
	// servicio y dejamos que /readyz lo refleje.
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		logger.L().Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones/metrics).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// mapErr traduce errores de pgx a los sentinels de core.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.ErrConflict
	}
	return err
}

func toInts(v []int32) []int {
	if v == nil {
		return nil
	}
	out := make([]int, len(v))
	for i, d := range v {
		out[i] = int(d)
	}
	return out
}

func toInt32s(v []int) []int32 {
	out := make([]int32, len(v))
	for i, d := range v {
		out[i] = int32(d)
	}
	return out
}

// ====================== TEAMS ======================

const teamCols = `id, slug, name, description, email, timezone, digest_days,
send_reminders_at, send_digest_at, active, created_at, updated_at`

func scanTeam(row pgx.Row) (*types.Team, error) {
	var t types.Team
	var days []int32
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.Email,
		&t.Timezone, &days, &t.SendRemindersAt, &t.SendDigestAt,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	t.DigestDays = toInts(days)
	return &t, nil
}

func (s *Store) CreateTeam(ctx context.Context, t *types.Team) error {
	const q = `
INSERT INTO team (id, slug, name, description, email, timezone, digest_days, send_reminders_at, send_digest_at, active)
VALUES (gen_random_uuid(), $1, $2, $3, LOWER($4), $5, $6, $7, $8, $9)
RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, t.Slug, t.Name, t.Description, t.Email,
		t.Timezone, toInt32s(t.DigestDays), t.SendRemindersAt, t.SendDigestAt, t.Active).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateTeam(ctx context.Context, t *types.Team) error {
	const q = `
UPDATE team SET name = $2, description = $3, email = LOWER($4), timezone = $5,
       digest_days = $6, send_reminders_at = $7, send_digest_at = $8,
       active = $9, updated_at = now()
WHERE slug = $1
RETURNING id, updated_at`
	err := s.pool.QueryRow(ctx, q, t.Slug, t.Name, t.Description, t.Email,
		t.Timezone, toInt32s(t.DigestDays), t.SendRemindersAt, t.SendDigestAt, t.Active).
		Scan(&t.ID, &t.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetTeamByID(ctx context.Context, id string) (*types.Team, error) {
	const q = `SELECT ` + teamCols + ` FROM team WHERE id = $1`
	return scanTeam(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetTeamBySlug(ctx context.Context, slug string) (*types.Team, error) {
	const q = `SELECT ` + teamCols + ` FROM team WHERE slug = $1`
	return scanTeam(s.pool.QueryRow(ctx, q, slug))
}

func (s *Store) GetTeamByEmail(ctx context.Context, email string) (*types.Team, error) {
	const q = `SELECT ` + teamCols + ` FROM team WHERE email = LOWER($1)`
	return scanTeam(s.pool.QueryRow(ctx, q, email))
}

func (s *Store) ListTeams(ctx context.Context) ([]types.Team, error) {
	const q = `SELECT ` + teamCols + ` FROM team ORDER BY created_at`
	return s.queryTeams(ctx, q)
}

func (s *Store) ListActiveTeams(ctx context.Context) ([]types.Team, error) {
	// Activo ⇒ flag + días configurados + al menos un miembro activo.
	const q = `
SELECT ` + teamCols + `
FROM team t
WHERE t.active
  AND cardinality(t.digest_days) > 0
  AND EXISTS (SELECT 1 FROM membership m WHERE m.team_id = t.id AND m.active)
ORDER BY t.created_at`
	return s.queryTeams(ctx, q)
}

func (s *Store) ListTeamsByMember(ctx context.Context, email string) ([]types.Team, error) {
	const q = `
SELECT ` + teamCols + `
FROM team t
JOIN membership m ON m.team_id = t.id
WHERE m.active AND LOWER(m.email) = LOWER($1)
ORDER BY t.created_at`
	return s.queryTeams(ctx, q, email)
}

func (s *Store) queryTeams(ctx context.Context, q string, args ...any) ([]types.Team, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []types.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ====================== MEMBERSHIPS ======================

const membershipCols = `id, team_id, name, email, role, active, created_at`

func scanMembership(row pgx.Row) (*types.Membership, error) {
	var m types.Membership
	err := row.Scan(&m.ID, &m.TeamID, &m.Name, &m.Email, &m.Role, &m.Active, &m.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (s *Store) AddMembership(ctx context.Context, m *types.Membership) error {
	if m.Role == "" {
		m.Role = types.RoleMember
	}
	const q = `
INSERT INTO membership (id, team_id, name, email, role, active)
VALUES (gen_random_uuid(), $1, $2, LOWER($3), $4, $5)
RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, m.TeamID, m.Name, m.Email, string(m.Role), m.Active).
		Scan(&m.ID, &m.CreatedAt)
	return mapErr(err)
}

func (s *Store) RemoveMembership(ctx context.Context, id string) error {
	// Baja lógica: conserva los updates históricos del miembro.
	ct, err := s.pool.Exec(ctx, `UPDATE membership SET active = false WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) GetMembership(ctx context.Context, id string) (*types.Membership, error) {
	const q = `SELECT ` + membershipCols + ` FROM membership WHERE id = $1`
	return scanMembership(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetMembershipByEmail(ctx context.Context, teamID, email string) (*types.Membership, error) {
	const q = `SELECT ` + membershipCols + ` FROM membership
WHERE team_id = $1 AND LOWER(email) = LOWER($2)`
	return scanMembership(s.pool.QueryRow(ctx, q, teamID, email))
}

func (s *Store) ListActiveMemberships(ctx context.Context, teamID string) ([]types.Membership, error) {
	const q = `SELECT ` + membershipCols + ` FROM membership
WHERE team_id = $1 AND active
ORDER BY created_at`
	rows, err := s.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []types.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ====================== UPDATES ======================

func (s *Store) UpsertUpdate(ctx context.Context, u *types.Update) error {
	const q = `
INSERT INTO status_update (id, membership_id, for_date, done, will_do, blockers)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
ON CONFLICT (membership_id, for_date) DO UPDATE
SET done = EXCLUDED.done, will_do = EXCLUDED.will_do,
    blockers = EXCLUDED.blockers, updated_at = now()
RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q, u.MembershipID, u.ForDate,
		u.Done, u.WillDo, u.Blockers).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetUpdateForDate(ctx context.Context, membershipID string, date time.Time) (*types.Update, error) {
	const q = `
SELECT id, membership_id, for_date, done, will_do, blockers, created_at, updated_at
FROM status_update
WHERE membership_id = $1 AND for_date = $2`
	var u types.Update
	err := s.pool.QueryRow(ctx, q, membershipID, date).
		Scan(&u.ID, &u.MembershipID, &u.ForDate, &u.Done, &u.WillDo,
			&u.Blockers, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) ListTeamUpdates(ctx context.Context, teamID string, date time.Time) ([]types.MemberUpdate, error) {
	const q = `
SELECT m.id, m.team_id, m.name, m.email, m.role, m.active, m.created_at,
       u.id, u.for_date, u.done, u.will_do, u.blockers, u.created_at, u.updated_at
FROM membership m
LEFT JOIN status_update u ON u.membership_id = m.id AND u.for_date = $2
WHERE m.team_id = $1 AND m.active
ORDER BY m.created_at`
	rows, err := s.pool.Query(ctx, q, teamID, date)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []types.MemberUpdate
	for rows.Next() {
		var m types.Membership
		var uID *string
		var forDate, createdAt, updatedAt *time.Time
		var done, willDo, blockers []string

		err := rows.Scan(&m.ID, &m.TeamID, &m.Name, &m.Email, &m.Role, &m.Active, &m.CreatedAt,
			&uID, &forDate, &done, &willDo, &blockers, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}
		mu := types.MemberUpdate{Membership: m}
		if uID != nil {
			mu.Update = &types.Update{
				ID:           *uID,
				MembershipID: m.ID,
				ForDate:      *forDate,
				Done:         done,
				WillDo:       willDo,
				Blockers:     blockers,
				CreatedAt:    *createdAt,
				UpdatedAt:    *updatedAt,
			}
		}
		out = append(out, mu)
	}
	return out, rows.Err()
}
