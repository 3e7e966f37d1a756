package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/digestus/internal/queue"
	"github.com/dropDatabas3/digestus/internal/rate"
	"github.com/dropDatabas3/digestus/internal/security/apikey"
	"github.com/dropDatabas3/digestus/internal/store/memory"
)

const adminKey = "test-admin-key"

type fakeQueue struct {
	published []string
	payloads  [][]byte
}

func (f *fakeQueue) Enqueue(ctx context.Context, subject string, payload any) error {
	data, _ := json.Marshal(payload)
	f.published = append(f.published, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *memory.Store, *fakeQueue) {
	t.Helper()
	st := memory.New()
	q := &fakeQueue{}
	h := New(Deps{
		Store:          st,
		Queue:          q,
		AdminKey:       apikey.NewVerifier(adminKey, ""),
		InboundLimiter: rate.NewMemoryLimiter(100, time.Minute),
		Version:        "test",
	})
	return h, st, q
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-API-Key", adminKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createTeam(t *testing.T, h http.Handler) map[string]any {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/admin/teams", map[string]any{
		"name":              "Platform",
		"email":             "platform@updates.example.com",
		"timezone":          "UTC",
		"digest_days":       []int{1, 2, 3, 4, 5},
		"send_reminders_at": "09:00",
		"send_digest_at":    "17:00",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func addMember(t *testing.T, h http.Handler, slug, name, email, role string) map[string]any {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/admin/teams/"+slug+"/members", map[string]any{
		"name": name, "email": email, "role": role,
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestRequestIDOnAPIRoutes(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/v1/teams?member=ana@example.com", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/v1/teams?member=ana@example.com", nil)
	req.Header.Set("X-Request-ID", "rid-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "rid-123", rr.Header().Get("X-Request-ID"))

	// Las sondas quedan fuera de la cadena de la API.
	rec = doJSON(t, h, http.MethodGet, "/healthz", nil, false)
	assert.Empty(t, rec.Header().Get("X-Request-ID"))
}

func TestAdminRequiresKey(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/v1/admin/teams", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/teams", nil)
	req.Header.Set("X-Admin-API-Key", "wrong")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTeamCRUD(t *testing.T) {
	h, _, _ := newTestRouter(t)
	team := createTeam(t, h)
	assert.Equal(t, "platform", team["slug"])

	// Duplicado
	rec := doJSON(t, h, http.MethodPost, "/v1/admin/teams", map[string]any{
		"name": "Platform", "email": "platform@updates.example.com",
	}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Get
	rec = doJSON(t, h, http.MethodGet, "/v1/admin/teams/platform", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	// El listado admin muestra el equipo recién creado aunque todavía no
	// tenga miembros.
	rec = doJSON(t, h, http.MethodGet, "/v1/admin/teams", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Teams []map[string]any `json:"teams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Teams, 1)
	assert.Equal(t, "platform", listed.Teams[0]["slug"])

	// Update
	rec = doJSON(t, h, http.MethodPut, "/v1/admin/teams/platform", map[string]any{
		"send_digest_at": "18:30",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "18:30", updated["send_digest_at"])

	// Not found
	rec = doJSON(t, h, http.MethodGet, "/v1/admin/teams/nope", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTeamValidation(t *testing.T) {
	h, _, _ := newTestRouter(t)

	cases := []map[string]any{
		{"email": "a@b.c"},                            // sin nombre
		{"name": "This team name is way way too long", "email": "a@b.c"},
		{"name": "T", "email": "not-an-email"},
		{"name": "T", "email": "a@b.c", "send_digest_at": "25:00"},
		{"name": "T", "email": "a@b.c", "digest_days": []int{9}},
		{"name": "T", "email": "a@b.c", "timezone": "Mars/Olympus"},
	}
	for i, body := range cases {
		rec := doJSON(t, h, http.MethodPost, "/v1/admin/teams", body, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "case %d: %s", i, rec.Body.String())
	}
}

func TestMembersAndPublicListing(t *testing.T) {
	h, _, _ := newTestRouter(t)
	createTeam(t, h)

	m := addMember(t, h, "platform", "Ana", "Ana@Example.com", "manager")
	assert.Equal(t, "ana@example.com", m["email"])

	// Duplicado por email (case-insensitive)
	rec := doJSON(t, h, http.MethodPost, "/v1/admin/teams/platform/members", map[string]any{
		"email": "ana@example.com",
	}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Listado público por miembro
	rec = doJSON(t, h, http.MethodGet, "/v1/teams?member=ana@example.com", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"platform"`)

	rec = doJSON(t, h, http.MethodGet, "/v1/teams?member=nobody@example.com", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"teams":[]`)

	// Baja
	rec = doJSON(t, h, http.MethodDelete, "/v1/admin/teams/platform/members/"+m["id"].(string), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/teams?member=ana@example.com", nil, false)
	assert.Contains(t, rec.Body.String(), `"teams":[]`)
}

func TestInboundFlow(t *testing.T) {
	h, _, q := newTestRouter(t)
	createTeam(t, h)
	addMember(t, h, "platform", "Ana", "ana@example.com", "member")

	// Reply válida
	rec := doJSON(t, h, http.MethodPost, "/v1/inbound", map[string]any{
		"from": "Ana <ana@example.com>",
		"to":   "Platform <platform@updates.example.com>",
		"text": "- shipped the thing\n+ start the next thing\n* blocked on review",
	}, false)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"accepted"`)

	// Quedó guardado
	rec = doJSON(t, h, http.MethodGet, "/v1/admin/teams/platform/updates", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shipped the thing")

	// Formato inválido: 202 + auto-reply encolado
	rec = doJSON(t, h, http.MethodPost, "/v1/inbound", map[string]any{
		"from": "ana@example.com",
		"to":   "platform@updates.example.com",
		"text": "today was fine, nothing to report",
	}, false)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rejected"`)
	require.NotEmpty(t, q.published)
	assert.Equal(t, queue.SubjectAutoReply, q.published[len(q.published)-1])

	// Remitente desconocido: ignorado, sin auto-reply
	before := len(q.published)
	rec = doJSON(t, h, http.MethodPost, "/v1/inbound", map[string]any{
		"from": "stranger@example.com",
		"to":   "platform@updates.example.com",
		"text": "- did things",
	}, false)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ignored"`)
	assert.Len(t, q.published, before)
}

func TestManualTriggers(t *testing.T) {
	h, _, q := newTestRouter(t)
	createTeam(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/admin/teams/platform/reminders", nil, true)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, q.published, 1)
	assert.Equal(t, queue.SubjectReminderTeam, q.published[0])

	rec = doJSON(t, h, http.MethodPost, "/v1/admin/teams/platform/digest", map[string]any{
		"date": "2026-08-25", "managers_only": true,
	}, true)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, q.published, 2)
	assert.Equal(t, queue.SubjectDigestTeam, q.published[1])

	var job queue.DigestTeamJob
	require.NoError(t, json.Unmarshal(q.payloads[1], &job))
	assert.True(t, job.ManagersOnly)
	assert.Equal(t, "2026-08-25", job.ForDate.Format("2006-01-02"))
}
