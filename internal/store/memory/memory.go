// Package memory implementa core.Store en memoria. Para desarrollo y tests:
// mismo comportamiento observable que el driver pg, sin DB.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/store/core"
	"github.com/google/uuid"
)

type Store struct {
	mu          sync.RWMutex
	teams       map[string]*types.Team       // por ID
	memberships map[string]*types.Membership // por ID
	updates     map[string]*types.Update     // por membershipID + "|" + fecha
}

func New() *Store {
	return &Store{
		teams:       make(map[string]*types.Team),
		memberships: make(map[string]*types.Membership),
		updates:     make(map[string]*types.Update),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

func dateKey(membershipID string, date time.Time) string {
	return membershipID + "|" + date.Format("2006-01-02")
}

func cloneTeam(t *types.Team) *types.Team {
	cp := *t
	cp.DigestDays = append([]int(nil), t.DigestDays...)
	return &cp
}

func cloneUpdate(u *types.Update) *types.Update {
	cp := *u
	cp.Done = append([]string(nil), u.Done...)
	cp.WillDo = append([]string(nil), u.WillDo...)
	cp.Blockers = append([]string(nil), u.Blockers...)
	return &cp
}

// ====================== TEAMS ======================

func (s *Store) CreateTeam(ctx context.Context, t *types.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range s.teams {
		if ex.Slug == t.Slug || strings.EqualFold(ex.Email, t.Email) || ex.Name == t.Name {
			return core.ErrConflict
		}
	}
	t.ID = uuid.NewString()
	t.Email = strings.ToLower(t.Email)
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	s.teams[t.ID] = cloneTeam(t)
	return nil
}

func (s *Store) UpdateTeam(ctx context.Context, t *types.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ex := range s.teams {
		if ex.Slug == t.Slug {
			t.ID = id
			t.Email = strings.ToLower(t.Email)
			t.CreatedAt = ex.CreatedAt
			t.UpdatedAt = time.Now().UTC()
			s.teams[id] = cloneTeam(t)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) GetTeamByID(ctx context.Context, id string) (*types.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.teams[id]; ok {
		return cloneTeam(t), nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetTeamBySlug(ctx context.Context, slug string) (*types.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.Slug == slug {
			return cloneTeam(t), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetTeamByEmail(ctx context.Context, email string) (*types.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if strings.EqualFold(t.Email, email) {
			return cloneTeam(t), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListTeams(ctx context.Context) ([]types.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Team
	for _, t := range s.teams {
		out = append(out, *cloneTeam(t))
	}
	sortTeams(out)
	return out, nil
}

func (s *Store) ListActiveTeams(ctx context.Context) ([]types.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Team
	for _, t := range s.teams {
		if !t.Active || len(t.DigestDays) == 0 {
			continue
		}
		if !s.hasActiveMemberLocked(t.ID) {
			continue
		}
		out = append(out, *cloneTeam(t))
	}
	sortTeams(out)
	return out, nil
}

func (s *Store) ListTeamsByMember(ctx context.Context, email string) ([]types.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Team
	for _, m := range s.memberships {
		if !m.Active || !strings.EqualFold(m.Email, email) {
			continue
		}
		if t, ok := s.teams[m.TeamID]; ok {
			out = append(out, *cloneTeam(t))
		}
	}
	sortTeams(out)
	return out, nil
}

func (s *Store) hasActiveMemberLocked(teamID string) bool {
	for _, m := range s.memberships {
		if m.TeamID == teamID && m.Active {
			return true
		}
	}
	return false
}

func sortTeams(ts []types.Team) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].CreatedAt.Before(ts[j].CreatedAt) })
}

// ====================== MEMBERSHIPS ======================

func (s *Store) AddMembership(ctx context.Context, m *types.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ex := range s.memberships {
		if ex.TeamID == m.TeamID && strings.EqualFold(ex.Email, m.Email) {
			return core.ErrConflict
		}
	}
	if m.Role == "" {
		m.Role = types.RoleMember
	}
	m.ID = uuid.NewString()
	m.Email = strings.ToLower(m.Email)
	m.CreatedAt = time.Now().UTC()
	cp := *m
	s.memberships[m.ID] = &cp
	return nil
}

func (s *Store) RemoveMembership(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok {
		return core.ErrNotFound
	}
	m.Active = false
	return nil
}

func (s *Store) GetMembership(ctx context.Context, id string) (*types.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.memberships[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetMembershipByEmail(ctx context.Context, teamID, email string) (*types.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.TeamID == teamID && strings.EqualFold(m.Email, email) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListActiveMemberships(ctx context.Context, teamID string) ([]types.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Membership
	for _, m := range s.memberships {
		if m.TeamID == teamID && m.Active {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ====================== UPDATES ======================

func (s *Store) UpsertUpdate(ctx context.Context, u *types.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(u.MembershipID, u.ForDate)
	now := time.Now().UTC()
	if ex, ok := s.updates[key]; ok {
		u.ID = ex.ID
		u.CreatedAt = ex.CreatedAt
	} else {
		u.ID = uuid.NewString()
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.updates[key] = cloneUpdate(u)
	return nil
}

func (s *Store) GetUpdateForDate(ctx context.Context, membershipID string, date time.Time) (*types.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.updates[dateKey(membershipID, date)]; ok {
		return cloneUpdate(u), nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListTeamUpdates(ctx context.Context, teamID string, date time.Time) ([]types.MemberUpdate, error) {
	members, err := s.ListActiveMemberships(ctx, teamID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.MemberUpdate, 0, len(members))
	for _, m := range members {
		mu := types.MemberUpdate{Membership: m}
		if u, ok := s.updates[dateKey(m.ID, date)]; ok {
			mu.Update = cloneUpdate(u)
		}
		out = append(out, mu)
	}
	return out, nil
}
