package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lifecycle"
)

type fakeActions struct {
	phase domain.Phase
	err   error

	calls []domain.Action
	keys  []domain.Key
}

func (f *fakeActions) TryAction(_ context.Context, _ domain.Kind, key domain.Key, action domain.Action) (domain.Phase, error) {
	f.calls = append(f.calls, action)
	f.keys = append(f.keys, key)
	return f.phase, f.err
}

type fakeResults struct {
	results []InteractionResult
	err     error
}

func (f *fakeResults) PublishResult(_ context.Context, r InteractionResult) error {
	f.results = append(f.results, r)
	return f.err
}

func actionDelivery(t *testing.T, body string) *Delivery {
	t.Helper()
	return &Delivery{Message: Message{
		ID:      "m-1",
		Type:    MessageTypeInteractionAction,
		Payload: json.RawMessage(body),
	}}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  ResultStatus
		wantRequeue bool
	}{
		{"ok", nil, ResultApplied, false},
		{"in progress", fmt.Errorf("wrap: %w", coordinator.ErrAlreadyInProgress), ResultInProgress, false},
		{"illegal", coordinator.ErrIllegalTransition, ResultIllegal, false},
		{"external", fmt.Errorf("%w: boom", coordinator.ErrExternalFailure), ResultFailed, false},
		{"unsaved", fmt.Errorf("%w: disk", coordinator.ErrPersistenceFailure), ResultUnsaved, false},
		{"no workflow", lifecycle.ErrNoWorkflow, ResultInvalid, false},
		{"unknown", errors.New("connection reset"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, requeue := Outcome(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantRequeue, requeue)
		})
	}
}

func TestHandle_AppliesAndReplies(t *testing.T) {
	actions := &fakeActions{phase: domain.PhaseApproved}
	results := &fakeResults{}
	h := NewInteractionHandler(actions, results, nil)

	// ID длиннее 2^53: не должны терять точность
	d := actionDelivery(t, `{"interaction_id":"i-1","kind":"application","key":"1234567890123456789","action":"approve","actor_id":"9007199254740993"}`)
	require.NoError(t, h.Handle(context.Background(), d))

	require.Len(t, actions.calls, 1)
	assert.Equal(t, domain.Key(1234567890123456789), actions.keys[0])
	assert.Equal(t, domain.ActionApprove, actions.calls[0].Type)
	assert.Equal(t, int64(9007199254740993), actions.calls[0].ActorID)

	require.Len(t, results.results, 1)
	assert.Equal(t, ResultApplied, results.results[0].Status)
	assert.Equal(t, "APPROVED", results.results[0].Phase)
	assert.Equal(t, "i-1", results.results[0].InteractionID)
}

func TestHandle_AcksBusyAndIllegal(t *testing.T) {
	for _, err := range []error{coordinator.ErrAlreadyInProgress, coordinator.ErrIllegalTransition} {
		results := &fakeResults{}
		h := NewInteractionHandler(&fakeActions{err: err}, results, nil)

		d := actionDelivery(t, `{"interaction_id":"i-2","kind":"transfer","key":"77","action":"approve_target","actor_id":"5"}`)
		require.NoError(t, h.Handle(context.Background(), d))
		require.Len(t, results.results, 1)
		assert.NotEqual(t, ResultApplied, results.results[0].Status)
		assert.NotEmpty(t, results.results[0].Message)
	}
}

func TestHandle_RequeuesUnclassified(t *testing.T) {
	boom := errors.New("boom")
	results := &fakeResults{}
	h := NewInteractionHandler(&fakeActions{err: boom}, results, nil)

	d := actionDelivery(t, `{"kind":"application","key":"1","action":"approve","actor_id":"2"}`)
	err := h.Handle(context.Background(), d)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, results.results)
}

func TestHandle_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown kind", `{"kind":"vacation","key":"1","action":"approve","actor_id":"2"}`},
		{"unknown action", `{"kind":"application","key":"1","action":"escalate","actor_id":"2"}`},
		{"zero key", `{"kind":"application","key":"0","action":"approve","actor_id":"2"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := &fakeActions{}
			results := &fakeResults{}
			h := NewInteractionHandler(actions, results, nil)

			require.NoError(t, h.Handle(context.Background(), actionDelivery(t, tt.body)))
			assert.Empty(t, actions.calls)
			require.Len(t, results.results, 1)
			assert.Equal(t, ResultInvalid, results.results[0].Status)
		})
	}
}

func TestHandle_BadMessage(t *testing.T) {
	h := NewInteractionHandler(&fakeActions{}, nil, nil)

	err := h.Handle(context.Background(), actionDelivery(t, `{"key": 12`))
	assert.ErrorIs(t, err, ErrBadMessage)

	d := actionDelivery(t, `{}`)
	d.Message.Type = MessageTypeInteractionResult
	assert.ErrorIs(t, h.Handle(context.Background(), d), ErrBadMessage)
}

func TestHandle_ResultPublishFailureStillAcks(t *testing.T) {
	results := &fakeResults{err: ErrNoChannel}
	h := NewInteractionHandler(&fakeActions{phase: domain.PhaseRejected}, results, nil)

	d := actionDelivery(t, `{"kind":"promotion","key":"3","action":"reject","actor_id":"4","reason":"нет"}`)
	require.NoError(t, h.Handle(context.Background(), d))
	assert.Len(t, results.results, 1)
}
