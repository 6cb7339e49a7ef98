package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/repo"
)

const (
	guild = 100
	user  = 1234567890123456789
	role  = 987654321987654321
)

type testServer struct {
	srv *httptest.Server
	mem *platform.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := platform.NewMemory()

	coord, err := coordinator.New(coordinator.Config{
		Adapter:           repo.NewMemoryAdapter(),
		API:               mem,
		DisableReconciler: true,
		Now:               func() time.Time { return time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Stop(context.Background()) })

	mux := http.NewServeMux()
	NewHandler(Config{Coordinator: coord}).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, mem: mem}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func data(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	d, ok := out["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", out)
	return d
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

const applicationBody = `{
	"key": "555",
	"kind": "application",
	"guild_id": "100",
	"channel_id": "10",
	"payload": {"user_id": "1234567890123456789", "roles": ["987654321987654321"]}
}`

func TestAPI_RegisterApproveFlow(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, http.MethodPost, "/api/v1/requests", applicationBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING", data(t, out)["phase"])
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	resp, out = s.do(t, http.MethodGet, "/api/v1/requests?kind=application", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["total"])

	resp, out = s.do(t, http.MethodGet, "/api/v1/requests/application/555", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PENDING", data(t, out)["phase"])

	resp, out = s.do(t, http.MethodPost, "/api/v1/requests/application/555/actions", `{"action":"approve","actor_id":"42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", data(t, out)["phase"])
	assert.True(t, s.mem.HasRole(guild, user, role), "snowflake ids survive the JSON path")

	// Повторное нажатие: заявка уже решена
	resp, out = s.do(t, http.MethodPost, "/api/v1/requests/application/555/actions", `{"action":"approve","actor_id":"42"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, string(ErrCodeInvalidState), errorCode(out))
	assert.Len(t, s.mem.CallsOf("grant_role"), 1)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/requests/application/555", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_NumericPayloadIDsStayExact(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"key": "556",
		"kind": "application",
		"guild_id": "100",
		"payload": {"user_id": 1234567890123456789, "roles": [987654321987654321]}
	}`
	resp, _ := s.do(t, http.MethodPost, "/api/v1/requests", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/requests/application/556/actions", `{"action":"approve","actor_id":"42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	grants := s.mem.CallsOf("grant_role")
	require.Len(t, grants, 1)
	assert.Equal(t, int64(user), grants[0].UserID)
	assert.Equal(t, int64(role), grants[0].RoleID)
}

func TestAPI_TransferStages(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, http.MethodPost, "/api/v1/requests",
		`{"key":"700","kind":"transfer","payload":{"user_id":"5"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "PENDING_SOURCE", data(t, out)["phase"])

	resp, out = s.do(t, http.MethodPost, "/api/v1/requests/transfer/700/actions", `{"action":"approve_target","actor_id":"9"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "PENDING_SOURCE", out["error"].(map[string]any)["phase"])

	resp, out = s.do(t, http.MethodPost, "/api/v1/requests/transfer/700/actions", `{"action":"approve_source","actor_id":"7"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PENDING_TARGET", data(t, out)["phase"])

	resp, out = s.do(t, http.MethodPost, "/api/v1/requests/transfer/700/actions", `{"action":"approve_target","actor_id":"9"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APPROVED", data(t, out)["phase"])
}

func TestAPI_Errors(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.do(t, http.MethodPost, "/api/v1/requests", applicationBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  ErrorCode
	}{
		{"duplicate", http.MethodPost, "/api/v1/requests", applicationBody, http.StatusConflict, ErrCodeConflict},
		{"unknown kind", http.MethodPost, "/api/v1/requests", `{"key":"1","kind":"vacation"}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad body", http.MethodPost, "/api/v1/requests", `{`, http.StatusBadRequest, ErrCodeBadRequest},
		{"list without kind", http.MethodGet, "/api/v1/requests", "", http.StatusBadRequest, ErrCodeBadRequest},
		{"bad key", http.MethodGet, "/api/v1/requests/application/abc", "", http.StatusBadRequest, ErrCodeBadRequest},
		{"unknown action", http.MethodPost, "/api/v1/requests/application/555/actions", `{"action":"escalate","actor_id":"1"}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"absent request", http.MethodPost, "/api/v1/requests/application/556/actions", `{"action":"approve","actor_id":"1"}`, http.StatusUnprocessableEntity, ErrCodeInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, string(tt.wantErr), errorCode(out))
		})
	}
}

func TestAPI_ExternalFailure(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.do(t, http.MethodPost, "/api/v1/requests", applicationBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	s.mem.FailNext("grant_role", caller.ErrPermissionDenied)

	resp, out := s.do(t, http.MethodPost, "/api/v1/requests/application/555/actions", `{"action":"approve","actor_id":"42"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, string(ErrCodeExternalFailure), errorCode(out))

	resp, out = s.do(t, http.MethodGet, "/api/v1/requests/application/555", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PENDING", data(t, out)["phase"])
}

func TestAPI_Sweep(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.do(t, http.MethodPost, "/api/v1/requests", applicationBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, out := s.do(t, http.MethodPost, "/api/v1/sweeps", `{"kind":"application","dry_run":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, out)
	assert.EqualValues(t, 1, d["pruned"])
	assert.Equal(t, []any{"555"}, d["missing"])

	resp, _ = s.do(t, http.MethodGet, "/api/v1/requests/application/555", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "dry run keeps the record")
}

func TestRecovery(t *testing.T) {
	h := Chain(RequestID(NewHandler(Config{}).logger), Recovery(), Logging())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(HeaderRequestID))
}
