package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
)

func singleRequest(kind domain.Kind, payload map[string]any) *domain.Request {
	return &domain.Request{
		Key:       100,
		Kind:      kind,
		GuildID:   1,
		ChannelID: 2,
		Payload:   payload,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func transferRequest(gate domain.TransferGate, payload map[string]any) *domain.Request {
	r := singleRequest(domain.KindTransfer, payload)
	r.Gate = &gate
	return r
}

func approve(actor int64) domain.Action {
	return domain.Action{Type: domain.ActionApprove, ActorID: actor}
}

func TestTransferPhase(t *testing.T) {
	tests := []struct {
		name string
		gate domain.TransferGate
		want domain.Phase
	}{
		{"fresh", domain.TransferGate{}, domain.PhasePendingSource},
		{"source approved", domain.TransferGate{ApprovedBySource: 7}, domain.PhasePendingTarget},
		{"bypass", domain.TransferGate{BypassSource: true}, domain.PhasePendingTarget},
		{"both approved", domain.TransferGate{ApprovedBySource: 7, ApprovedByTarget: 9}, domain.PhaseApproved},
		{"bypass and target", domain.TransferGate{BypassSource: true, ApprovedByTarget: 9}, domain.PhaseApproved},
		{"target only", domain.TransferGate{ApprovedByTarget: 9}, domain.PhasePendingSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TransferPhase(tt.gate))
		})
	}
}

func TestPhaseOf(t *testing.T) {
	_, ok := PhaseOf(nil)
	assert.False(t, ok)

	phase, ok := PhaseOf(singleRequest(domain.KindApplication, nil))
	assert.True(t, ok)
	assert.Equal(t, domain.PhasePending, phase)

	phase, ok = PhaseOf(transferRequest(domain.TransferGate{BypassSource: true}, nil))
	assert.True(t, ok)
	assert.Equal(t, domain.PhasePendingTarget, phase)
}

func TestSingle_CanApproveCanRejectIffPresent(t *testing.T) {
	rec := singleRequest(domain.KindTermination, nil)

	assert.True(t, CanApprove(rec))
	assert.True(t, CanReject(rec))
	assert.False(t, CanApprove(nil))
	assert.False(t, CanReject(nil))
}

func TestSingle_Plan(t *testing.T) {
	wf := ApplicationWorkflow{}
	rec := singleRequest(domain.KindApplication, nil)

	tr, err := wf.Plan(rec, approve(5))
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePending, tr.From)
	assert.Equal(t, domain.PhaseApproved, tr.To)
	assert.True(t, tr.Terminal())

	tr, err = wf.Plan(rec, domain.Action{Type: domain.ActionReject, ActorID: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRejected, tr.To)
	assert.True(t, tr.Terminal())

	// После перехода записи нет: ни одобрить, ни отклонить
	_, err = wf.Plan(nil, approve(5))
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = wf.Plan(nil, domain.Action{Type: domain.ActionReject})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = wf.Plan(rec, domain.Action{Type: domain.ActionApproveSource, ActorID: 5})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransfer_DualApproval(t *testing.T) {
	wf := TransferWorkflow{}
	rec := transferRequest(domain.TransferGate{}, nil)

	phase, _ := PhaseOf(rec)
	require.Equal(t, domain.PhasePendingSource, phase)

	tr, err := wf.Plan(rec, domain.Action{Type: domain.ActionApproveSource, ActorID: 7})
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePendingTarget, tr.To)
	assert.False(t, tr.Terminal())
	require.NotNil(t, tr.Gate)
	assert.Equal(t, domain.TransferGate{ApprovedBySource: 7}, *tr.Gate)

	// Plan не меняет исходную запись
	assert.Equal(t, int64(0), rec.Gate.ApprovedBySource)

	rec.Gate = tr.Gate
	tr, err = wf.Plan(rec, domain.Action{Type: domain.ActionApproveTarget, ActorID: 9})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseApproved, tr.To)
	assert.True(t, tr.Terminal())
	assert.Equal(t, domain.TransferGate{ApprovedBySource: 7, ApprovedByTarget: 9}, *tr.Gate)
}

func TestTransfer_IllegalStages(t *testing.T) {
	wf := TransferWorkflow{}

	bypass := transferRequest(domain.TransferGate{BypassSource: true}, nil)
	_, err := wf.Plan(bypass, domain.Action{Type: domain.ActionApproveSource, ActorID: 7})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	fresh := transferRequest(domain.TransferGate{}, nil)
	_, err = wf.Plan(fresh, domain.Action{Type: domain.ActionApproveTarget, ActorID: 9})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = wf.Plan(fresh, approve(9))
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = wf.Plan(fresh, domain.Action{Type: domain.ActionApproveSource})
	assert.ErrorIs(t, err, ErrIllegalTransition, "actor 0 means unset")

	_, err = wf.Plan(nil, domain.Action{Type: domain.ActionReject})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransfer_RejectFromAnyPendingPhase(t *testing.T) {
	wf := TransferWorkflow{}
	gates := []domain.TransferGate{
		{},
		{ApprovedBySource: 7},
		{BypassSource: true},
	}

	for _, g := range gates {
		tr, err := wf.Plan(transferRequest(g, nil), domain.Action{Type: domain.ActionReject, ActorID: 3})
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseRejected, tr.To)
	}
}

func TestApply_ApplicationGrantsRoles(t *testing.T) {
	mem := platform.NewMemory()
	rec := singleRequest(domain.KindApplication, map[string]any{
		"user_id":        float64(42),
		"roles":          []any{float64(10), float64(11)},
		"notify_channel": float64(500),
	})

	wf := ApplicationWorkflow{}
	tr, err := wf.Plan(rec, approve(5))
	require.NoError(t, err)
	require.NoError(t, wf.Apply(context.Background(), mem, rec, tr))

	assert.True(t, mem.HasRole(1, 42, 10))
	assert.True(t, mem.HasRole(1, 42, 11))
	require.Len(t, mem.CallsOf("send_message"), 1)
	assert.Equal(t, int64(500), mem.CallsOf("send_message")[0].ChannelID)
}

func TestApply_PromotionSwapsRoles(t *testing.T) {
	mem := platform.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.GrantRole(ctx, 1, 42, 20, ""))

	rec := singleRequest(domain.KindPromotion, map[string]any{
		"user_id":   float64(42),
		"old_roles": []any{float64(20)},
		"new_roles": []any{float64(21)},
	})

	wf := PromotionWorkflow{}
	tr, err := wf.Plan(rec, approve(5))
	require.NoError(t, err)
	require.NoError(t, wf.Apply(ctx, mem, rec, tr))

	assert.False(t, mem.HasRole(1, 42, 20))
	assert.True(t, mem.HasRole(1, 42, 21))
}

func TestApply_TerminationRevokesRoles(t *testing.T) {
	mem := platform.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.GrantRole(ctx, 1, 42, 30, ""))

	rec := singleRequest(domain.KindTermination, map[string]any{
		"user_id": float64(42),
		"roles":   []any{float64(30)},
	})

	wf := TerminationWorkflow{}
	tr, err := wf.Plan(rec, approve(5))
	require.NoError(t, err)
	require.NoError(t, wf.Apply(ctx, mem, rec, tr))
	assert.False(t, mem.HasRole(1, 42, 30))
}

func TestApply_RejectOnlyNotifies(t *testing.T) {
	mem := platform.NewMemory()
	rec := singleRequest(domain.KindApplication, map[string]any{
		"user_id":        float64(42),
		"roles":          []any{float64(10)},
		"notify_channel": float64(500),
	})

	wf := ApplicationWorkflow{}
	tr, err := wf.Plan(rec, domain.Action{Type: domain.ActionReject, ActorID: 5, Reason: "нет возраста"})
	require.NoError(t, err)
	require.NoError(t, wf.Apply(context.Background(), mem, rec, tr))

	assert.False(t, mem.HasRole(1, 42, 10))
	sent := mem.CallsOf("send_message")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Content, "нет возраста")
}

func TestApply_TransferStages(t *testing.T) {
	mem := platform.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.GrantRole(ctx, 1, 42, 40, ""))

	rec := transferRequest(domain.TransferGate{}, map[string]any{
		"user_id":        float64(42),
		"source_roles":   []any{float64(40)},
		"target_roles":   []any{float64(41)},
		"target_channel": float64(600),
	})
	wf := TransferWorkflow{}

	tr, err := wf.Plan(rec, domain.Action{Type: domain.ActionApproveSource, ActorID: 7})
	require.NoError(t, err)
	require.NoError(t, wf.Apply(ctx, mem, rec, tr))
	require.Len(t, mem.CallsOf("send_message"), 1)
	assert.Equal(t, int64(600), mem.CallsOf("send_message")[0].ChannelID)
	assert.True(t, mem.HasRole(1, 42, 40), "roles untouched until target approval")

	rec.Gate = tr.Gate
	tr, err = wf.Plan(rec, domain.Action{Type: domain.ActionApproveTarget, ActorID: 9})
	require.NoError(t, err)
	require.NoError(t, wf.Apply(ctx, mem, rec, tr))
	assert.False(t, mem.HasRole(1, 42, 40))
	assert.True(t, mem.HasRole(1, 42, 41))
}

func TestApply_MissingUserIsError(t *testing.T) {
	rec := singleRequest(domain.KindApplication, map[string]any{
		"roles": []any{float64(10)},
	})
	wf := ApplicationWorkflow{}
	tr, err := wf.Plan(rec, approve(5))
	require.NoError(t, err)

	err = wf.Apply(context.Background(), platform.NewMemory(), rec, tr)
	assert.ErrorIs(t, err, ErrMissingPayload)
}

func TestApply_PlatformErrorPropagates(t *testing.T) {
	mem := platform.NewMemory()
	mem.FailNext("grant_role", caller.ErrPermissionDenied)

	rec := singleRequest(domain.KindApplication, map[string]any{
		"user_id": float64(42),
		"roles":   []any{float64(10)},
	})
	wf := ApplicationWorkflow{}
	tr, err := wf.Plan(rec, approve(5))
	require.NoError(t, err)

	err = wf.Apply(context.Background(), mem, rec, tr)
	assert.True(t, errors.Is(err, caller.ErrPermissionDenied))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, domain.Kinds(), r.Kinds())

	for _, k := range domain.Kinds() {
		wf, err := r.Get(k)
		require.NoError(t, err)
		assert.Equal(t, k, wf.Kind())
	}

	_, err := r.Get("unknown")
	assert.ErrorIs(t, err, ErrNoWorkflow)
}
