package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/digestus/internal/domain/types"
	"github.com/dropDatabas3/digestus/internal/email"
	"github.com/dropDatabas3/digestus/internal/store/memory"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
	done chan struct{}
}

type sentMail struct {
	from    string
	to      []string
	subject string
	text    string
}

func newRecordingSender(expect int) *recordingSender {
	return &recordingSender{done: make(chan struct{}, expect)}
}

func (r *recordingSender) Send(from string, to []string, subject, htmlBody, textBody string) error {
	r.mu.Lock()
	r.sent = append(r.sent, sentMail{from: from, to: to, subject: subject, text: textBody})
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordingSender) wait(t *testing.T, n int) []sentMail {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for send %d of %d", i+1, n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentMail, len(r.sent))
	copy(out, r.sent)
	return out
}

func setupQueue(t *testing.T) (*Queue, jetstream.JetStream) {
	t.Helper()
	ns, err := StartEmbeddedNATS(t.TempDir())
	require.NoError(t, err)
	nc, err := ConnectInProcess(ns)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(nc, ns) })

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	q, err := SetupStream(context.Background(), js)
	require.NoError(t, err)
	return q, js
}

func seedTeam(t *testing.T, st *memory.Store) (*types.Team, *types.Membership) {
	t.Helper()
	ctx := context.Background()
	team := &types.Team{
		Slug:       "platform",
		Name:       "Platform",
		Email:      "platform@updates.example.com",
		Timezone:   "UTC",
		DigestDays: []int{1, 2, 3, 4, 5},
		Active:     true,
	}
	require.NoError(t, st.CreateTeam(ctx, team))

	m := &types.Membership{
		TeamID: team.ID,
		Name:   "Ana",
		Email:  "ana@example.com",
		Role:   types.RoleMember,
		Active: true,
	}
	require.NoError(t, st.AddMembership(ctx, m))
	return team, m
}

func TestWorkerSendsMemberReminder(t *testing.T) {
	q, _ := setupQueue(t)
	st := memory.New()
	team, member := seedTeam(t, st)

	sender := newRecordingSender(1)
	w := NewWorker(q, st, email.NewService(sender), WorkerConfig{MaxDeliver: 2, RetryDelay: time.Second})

	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, q.Enqueue(ctx, SubjectReminderMember, ReminderMemberJob{
		TeamID:        team.ID,
		MembershipID:  member.ID,
		PreviousTodos: []string{"finish the release notes"},
	}))

	sent := sender.wait(t, 1)
	assert.Equal(t, "What did you get done today?", sent[0].subject)
	assert.Equal(t, []string{"Ana <ana@example.com>"}, sent[0].to)
	assert.Contains(t, sent[0].text, "finish the release notes")
}

func TestWorkerFansOutTeamReminder(t *testing.T) {
	q, _ := setupQueue(t)
	st := memory.New()
	team, member := seedTeam(t, st)

	ctx := context.Background()
	second := &types.Membership{TeamID: team.ID, Name: "Bruno", Email: "bruno@example.com", Role: types.RoleManager, Active: true}
	require.NoError(t, st.AddMembership(ctx, second))

	// Ana ya mandó el update de hoy con pendientes; Bruno todavía no.
	forDate := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC) // martes
	require.NoError(t, st.UpsertUpdate(ctx, &types.Update{
		MembershipID: member.ID,
		ForDate:      forDate,
		WillDo:       []string{"deploy the parser"},
		Blockers:     []string{"stuck on review"},
	}))

	sender := newRecordingSender(2)
	w := NewWorker(q, st, email.NewService(sender), WorkerConfig{MaxDeliver: 2, RetryDelay: time.Second})
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, q.Enqueue(ctx, SubjectReminderTeam, ReminderTeamJob{
		TeamID:  team.ID,
		ForDate: forDate,
	}))

	sent := sender.wait(t, 2)
	byTo := map[string]sentMail{}
	for _, s := range sent {
		byTo[s.to[0]] = s
	}
	require.Len(t, byTo, 2)
	assert.Contains(t, byTo["Ana <ana@example.com>"].text, "Were these items done?")
	assert.Contains(t, byTo["Ana <ana@example.com>"].text, "deploy the parser")
	assert.Contains(t, byTo["Ana <ana@example.com>"].text, "stuck on review")
	assert.NotContains(t, byTo["Bruno <bruno@example.com>"].text, "Were these items done?")
	assert.NotContains(t, byTo["Bruno <bruno@example.com>"].text, "deploy the parser")
}

func TestWorkerSendsDigest(t *testing.T) {
	q, _ := setupQueue(t)
	st := memory.New()
	team, member := seedTeam(t, st)

	ctx := context.Background()
	forDate := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertUpdate(ctx, &types.Update{
		MembershipID: member.ID,
		ForDate:      forDate,
		Done:         []string{"wrote the digest worker"},
	}))

	sender := newRecordingSender(1)
	w := NewWorker(q, st, email.NewService(sender), WorkerConfig{MaxDeliver: 2, RetryDelay: time.Second})
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, q.Enqueue(ctx, SubjectDigestTeam, DigestTeamJob{
		TeamID:  team.ID,
		ForDate: forDate,
	}))

	sent := sender.wait(t, 1)
	assert.Contains(t, sent[0].subject, "Digest for Platform for ")
	assert.Contains(t, sent[0].text, "wrote the digest worker")
}

func TestWorkerDropsInvalidPayload(t *testing.T) {
	q, js := setupQueue(t)
	st := memory.New()

	sender := newRecordingSender(1)
	w := NewWorker(q, st, email.NewService(sender), WorkerConfig{MaxDeliver: 2, RetryDelay: time.Second})

	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	_, err := js.Publish(ctx, SubjectAutoReply, []byte("not json"))
	require.NoError(t, err)

	// El job roto se descarta sin enviar nada.
	select {
	case <-sender.done:
		t.Fatal("unexpected send for invalid payload")
	case <-time.After(500 * time.Millisecond):
	}
}
