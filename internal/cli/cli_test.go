package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/api"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/repo"
)

type fakeBackend struct {
	pending []RequestResponse
	result  *SweepResponse
	err     error

	calls     int
	sweptKind string
	dryRun    bool
}

func (f *fakeBackend) ListPending(_ context.Context, kind string) ([]RequestResponse, error) {
	f.calls++
	var out []RequestResponse
	for _, r := range f.pending {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeBackend) Sweep(_ context.Context, kind string, dryRun bool) (*SweepResponse, error) {
	f.calls++
	f.sweptKind = kind
	f.dryRun = dryRun
	return f.result, f.err
}

func run(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Output{jsonMode: jsonMode, w: &stdout, errW: &stderr}, &stdout, &stderr
}

func TestPendingList_Table(t *testing.T) {
	backend := &fakeBackend{pending: []RequestResponse{
		{Key: "11", Kind: "transfer", Phase: "PENDING_TARGET", ChannelID: "500",
			CreatedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		{Key: "12", Kind: "application", Phase: "PENDING", ChannelID: "500"},
	}}
	out, stdout, _ := newTestOutput(false)

	cmd := NewPendingCmd(func() Backend { return backend }, func() *Output { return out })
	require.NoError(t, run(t, cmd, "list", "--kind", "transfer"))

	assert.Contains(t, stdout.String(), "PENDING_TARGET")
	assert.Contains(t, stdout.String(), "11")
	assert.NotContains(t, stdout.String(), "application")
}

func TestPendingList_Empty(t *testing.T) {
	out, stdout, stderr := newTestOutput(false)

	cmd := NewPendingCmd(func() Backend { return &fakeBackend{} }, func() *Output { return out })
	require.NoError(t, run(t, cmd, "list", "--kind", "issuance"))

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Nothing to show")
}

func TestPendingList_UnknownKind(t *testing.T) {
	backend := &fakeBackend{}
	cmd := NewPendingCmd(func() Backend { return backend }, func() *Output { o, _, _ := newTestOutput(false); return o })

	err := run(t, cmd, "list", "--kind", "vacation")
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
	assert.Zero(t, backend.calls)
}

func TestSweep_DryRun(t *testing.T) {
	backend := &fakeBackend{result: &SweepResponse{
		Kind:    "issuance",
		DryRun:  true,
		Checked: 3,
		Pruned:  1,
		Missing: []string{"5"},
		Unknown: []string{"6"},
	}}
	out, stdout, stderr := newTestOutput(false)

	cmd := NewSweepCmd(func() Backend { return backend }, func() *Output { return out })
	require.NoError(t, run(t, cmd, "--kind", "issuance", "--dry-run"))

	assert.Equal(t, "issuance", backend.sweptKind)
	assert.True(t, backend.dryRun)
	assert.Contains(t, stdout.String(), "missing")
	assert.Contains(t, stdout.String(), "unknown")
	assert.Contains(t, stderr.String(), "Would prune 1 issuance request(s)")
}

func TestSweep_RequiresKind(t *testing.T) {
	cmd := NewSweepCmd(func() Backend { return &fakeBackend{} }, func() *Output { o, _, _ := newTestOutput(false); return o })
	assert.Error(t, run(t, cmd))
}

// --- Client против настоящего API ---

type apiFixture struct {
	coord   *coordinator.Coordinator
	adapter *repo.MemoryAdapter
	client  *Client
}

func newAPIFixture(t *testing.T, disableSweeps bool) *apiFixture {
	t.Helper()
	adapter := repo.NewMemoryAdapter()

	coord, err := coordinator.New(coordinator.Config{
		Adapter:           adapter,
		API:               platform.NewMemory(),
		DisableReconciler: true,
		DisableSweeps:     disableSweeps,
	})
	require.NoError(t, err)
	require.NoError(t, coord.Start(context.Background()))
	t.Cleanup(func() { _ = coord.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewHandler(api.Config{Coordinator: coord}).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &apiFixture{coord: coord, adapter: adapter, client: NewClient(srv.URL)}
}

func (f *apiFixture) register(t *testing.T, key domain.Key) {
	t.Helper()
	_, err := f.coord.Register(context.Background(), &domain.Request{
		Key:       key,
		Kind:      domain.KindTransfer,
		GuildID:   1,
		ChannelID: 500,
		Payload:   map[string]any{"user_id": int64(1234567890123456789)},
		Gate:      &domain.TransferGate{},
	})
	require.NoError(t, err)
}

func TestClient_ListPendingKeepsIDsExact(t *testing.T) {
	f := newAPIFixture(t, false)
	f.register(t, 1234567890123456781)

	items, err := f.client.ListPending(context.Background(), "transfer")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1234567890123456781", items[0].Key)
	assert.Equal(t, "PENDING_SOURCE", items[0].Phase)
	assert.Equal(t, json.Number("1234567890123456789"), items[0].Payload["user_id"])
}

func TestClient_SweepGoesThroughService(t *testing.T) {
	f := newAPIFixture(t, false)
	f.register(t, 77)
	ctx := context.Background()

	res, err := f.client.Sweep(ctx, "transfer", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, []string{"77"}, res.Missing)

	// Сервис сам удалил заявку: в памяти её нет, действие не воскрешает запись
	_, ok := f.coord.Phase(domain.KindTransfer, 77)
	assert.False(t, ok)

	_, err = f.coord.TryAction(ctx, domain.KindTransfer, 77, domain.Action{Type: domain.ActionApproveSource, ActorID: 7})
	assert.ErrorIs(t, err, coordinator.ErrIllegalTransition)
	assert.Zero(t, f.adapter.Len())
}

func TestClient_SweepDisabledIsAPIError(t *testing.T) {
	f := newAPIFixture(t, true)
	f.register(t, 78)

	_, err := f.client.Sweep(context.Background(), "transfer", true)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "UNAVAILABLE", apiErr.Code)
	assert.Equal(t, 1, f.adapter.Len())
}

func TestClient_BadRequest(t *testing.T) {
	f := newAPIFixture(t, false)

	_, err := f.client.ListPending(context.Background(), "vacation")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestSweepCmd_ReturnsServerError(t *testing.T) {
	f := newAPIFixture(t, true)
	out, stdout, _ := newTestOutput(true)

	cmd := NewSweepCmd(func() Backend { return f.client }, func() *Output { return out })
	err := run(t, cmd, "--kind", "promotion")

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Empty(t, stdout.String())
}
