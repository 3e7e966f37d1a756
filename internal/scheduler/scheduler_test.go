package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/digestus/internal/cache"
	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/queue"
	"github.com/dropDatabas3/digestus/internal/store/memory"
)

type fakeQueue struct {
	published []published
}

type published struct {
	subject string
	payload []byte
}

func (f *fakeQueue) Enqueue(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.published = append(f.published, published{subject: subject, payload: data})
	return nil
}

func newScheduler(t *testing.T, st *memory.Store, q *fakeQueue, at time.Time) *Scheduler {
	t.Helper()
	c := cache.New(cache.Config{Kind: "memory"})
	s := New(st, q, c, Config{Tick: time.Minute, ManagerDigestLead: time.Hour})
	s.now = func() time.Time { return at }
	return s
}

func seedTeam(t *testing.T, st *memory.Store, tz string) *types.Team {
	t.Helper()
	team := &types.Team{
		Slug:            "platform",
		Name:            "Platform",
		Email:           "platform@updates.example.com",
		Timezone:        tz,
		DigestDays:      []int{1, 2, 3, 4, 5}, // lunes a viernes
		SendRemindersAt: "09:00",
		SendDigestAt:    "17:00",
		Active:          true,
	}
	require.NoError(t, st.CreateTeam(ctx(), team))
	require.NoError(t, st.AddMembership(ctx(), &types.Membership{
		TeamID: team.ID, Name: "Ana", Email: "ana@example.com", Role: types.RoleMember, Active: true,
	}))
	return team
}

func ctx() context.Context { return context.Background() }

func TestSweepSchedulesReminderAtLocalTime(t *testing.T) {
	st := memory.New()
	q := &fakeQueue{}
	team := seedTeam(t, st, "UTC")

	// Martes 09:00 UTC
	at := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	s := newScheduler(t, st, q, at)

	require.NoError(t, s.Sweep(ctx()))
	require.Len(t, q.published, 1)
	assert.Equal(t, queue.SubjectReminderTeam, q.published[0].subject)

	var job queue.ReminderTeamJob
	require.NoError(t, json.Unmarshal(q.published[0].payload, &job))
	assert.Equal(t, team.ID, job.TeamID)
	assert.Equal(t, "2026-08-25", job.ForDate.Format("2006-01-02"))
}

func TestSweepHonorsTeamTimezone(t *testing.T) {
	st := memory.New()
	q := &fakeQueue{}
	seedTeam(t, st, "Asia/Manila") // UTC+8

	// 09:00 en Manila es 01:00 UTC.
	at := time.Date(2026, 8, 25, 1, 0, 0, 0, time.UTC)
	s := newScheduler(t, st, q, at)

	require.NoError(t, s.Sweep(ctx()))
	require.Len(t, q.published, 1)
	assert.Equal(t, queue.SubjectReminderTeam, q.published[0].subject)

	// A las 09:00 UTC en Manila ya son las 17:00: sale el digest, no el reminder.
	q.published = nil
	s.now = func() time.Time { return time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, s.Sweep(ctx()))
	require.Len(t, q.published, 1)
	assert.Equal(t, queue.SubjectDigestTeam, q.published[0].subject)
}

func TestSweepSkipsNonDigestDays(t *testing.T) {
	st := memory.New()
	q := &fakeQueue{}
	seedTeam(t, st, "UTC")

	// Domingo 09:00
	at := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	s := newScheduler(t, st, q, at)

	require.NoError(t, s.Sweep(ctx()))
	assert.Empty(t, q.published)
}

func TestSweepManagerDigestLeadsGeneral(t *testing.T) {
	st := memory.New()
	q := &fakeQueue{}
	team := seedTeam(t, st, "UTC")

	// 16:00: una hora antes del digest de las 17:00.
	at := time.Date(2026, 8, 25, 16, 0, 0, 0, time.UTC)
	s := newScheduler(t, st, q, at)

	require.NoError(t, s.Sweep(ctx()))
	require.Len(t, q.published, 1)
	assert.Equal(t, queue.SubjectDigestTeam, q.published[0].subject)

	var job queue.DigestTeamJob
	require.NoError(t, json.Unmarshal(q.published[0].payload, &job))
	assert.Equal(t, team.ID, job.TeamID)
	assert.True(t, job.ManagersOnly)
}

func TestSweepDeduplicates(t *testing.T) {
	st := memory.New()
	q := &fakeQueue{}
	seedTeam(t, st, "UTC")

	at := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	s := newScheduler(t, st, q, at)

	require.NoError(t, s.Sweep(ctx()))
	require.NoError(t, s.Sweep(ctx()))
	assert.Len(t, q.published, 1)
}

func TestMinusLead(t *testing.T) {
	got, ok := minusLead("17:00", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "16:00", got)

	got, ok = minusLead("00:30", time.Hour)
	assert.False(t, ok)
	assert.Empty(t, got)

	_, ok = minusLead("bogus", time.Hour)
	assert.False(t, ok)
}
