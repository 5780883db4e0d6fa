package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/events"
	"github.com/planvox/planvox-api/internal/service"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.Event
}

func (c *captureEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEmitter) all() []*events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*events.Event(nil), c.events...)
}

func newAggregator(t *testing.T, h *serviceHarness) (*service.Aggregator, *captureEmitter) {
	t.Helper()

	emitter := &captureEmitter{}
	agg, err := service.NewAggregator(h.schemeRepo, h.taskRepo, emitter, nil)
	require.NoError(t, err)
	return agg, emitter
}

func TestAggregatorReconcileSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.createScheme(t, 1, 2)
	_, err := h.batches.CreateBatch(ctx, 1, batchItems(2), "voice-a", "acme", false)
	require.NoError(t, err)
	h.settleAll(t, 1, domain.TaskStatusSuccess)

	agg, emitter := newAggregator(t, h)
	require.NoError(t, agg.Reconcile(ctx, 1))

	scheme, err := h.schemes.GetScheme(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TTSStateSuccess, scheme.TTSState)

	emitted := emitter.all()
	require.Len(t, emitted, 1)
	assert.Equal(t, events.TypeBatchFinished, emitted[0].Type)

	var payload events.BatchFinishedPayload
	require.NoError(t, emitted[0].UnmarshalPayload(&payload))
	assert.Equal(t, int64(1), payload.SchemeID)
	assert.Equal(t, domain.TTSStateSuccess, payload.TTSState)
	assert.Equal(t, 6, payload.Success)
	assert.Equal(t, 0, payload.Failed)
}

func TestAggregatorReconcileFailedWins(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.createScheme(t, 1, 2)
	_, err := h.batches.CreateBatch(ctx, 1, batchItems(2), "voice-a", "acme", false)
	require.NoError(t, err)

	tasks, err := h.taskRepo.ListByScheme(ctx, 1)
	require.NoError(t, err)
	tasks[0].MarkFailed("failed after 3 attempts: provider unavailable")
	require.NoError(t, h.taskRepo.Update(ctx, tasks[0]))
	h.settleAll(t, 1, domain.TaskStatusSuccess)

	agg, emitter := newAggregator(t, h)
	require.NoError(t, agg.Reconcile(ctx, 1))

	scheme, err := h.schemes.GetScheme(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TTSStateFailed, scheme.TTSState)

	emitted := emitter.all()
	require.Len(t, emitted, 1)

	var payload events.BatchFinishedPayload
	require.NoError(t, emitted[0].UnmarshalPayload(&payload))
	assert.Equal(t, domain.TTSStateFailed, payload.TTSState)
	assert.Equal(t, 5, payload.Success)
	assert.Equal(t, 1, payload.Failed)
}

func TestAggregatorReconcilePendingKeepsProcessing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.createScheme(t, 1, 2)
	_, err := h.batches.CreateBatch(ctx, 1, batchItems(2), "voice-a", "acme", false)
	require.NoError(t, err)

	agg, emitter := newAggregator(t, h)
	require.NoError(t, agg.Reconcile(ctx, 1))

	scheme, err := h.schemes.GetScheme(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TTSStateProcessing, scheme.TTSState)
	assert.Empty(t, emitter.all())
}

func TestAggregatorReconcileNoTasks(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.createScheme(t, 1, 2)

	agg, emitter := newAggregator(t, h)
	require.NoError(t, agg.Reconcile(ctx, 1))

	scheme, err := h.schemes.GetScheme(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TTSStateIdle, scheme.TTSState)
	assert.Empty(t, emitter.all())
}

func TestAggregatorReconcileMissingScheme(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	// Task rows can outlive their scheme; reconciliation must not fail on them.
	task, err := domain.NewSpeechTask(77, 0, domain.SegmentKeyBegin, "orphan", "voice-a", "acme")
	require.NoError(t, err)
	task.MarkSuccess("nats://speech-audio/orphan.wav")
	require.NoError(t, h.taskRepo.Create(ctx, task))

	agg, emitter := newAggregator(t, h)
	require.NoError(t, agg.Reconcile(ctx, 77))
	assert.Empty(t, emitter.all())
}

func TestAggregatorHandleEventTaskCompleted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.createScheme(t, 1, 1)
	_, err := h.batches.CreateBatch(ctx, 1, batchItems(1), "voice-a", "acme", false)
	require.NoError(t, err)
	h.settleAll(t, 1, domain.TaskStatusSuccess)

	agg, _ := newAggregator(t, h)
	event, err := events.NewEvent(events.TypeTaskCompleted, events.TaskCompletedPayload{
		TaskID:      uuid.New(),
		SchemeID:    1,
		SchemeIndex: 0,
		SegmentKey:  domain.SegmentKeyBegin,
		Status:      domain.TaskStatusSuccess,
		AudioURL:    "nats://speech-audio/1-0-begin.wav",
	})
	require.NoError(t, err)
	require.NoError(t, agg.HandleEvent(ctx, event))

	scheme, err := h.schemes.GetScheme(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TTSStateSuccess, scheme.TTSState)
}

func TestAggregatorHandleEventIgnoresOtherTypes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.createScheme(t, 1, 1)
	_, err := h.batches.CreateBatch(ctx, 1, batchItems(1), "voice-a", "acme", false)
	require.NoError(t, err)
	h.settleAll(t, 1, domain.TaskStatusSuccess)

	agg, _ := newAggregator(t, h)
	event, err := events.NewEvent(events.TypeBatchFinished, events.BatchFinishedPayload{SchemeID: 1})
	require.NoError(t, err)
	require.NoError(t, agg.HandleEvent(ctx, event))

	// The settled tasks are not reconciled by a foreign event type.
	scheme, err := h.schemes.GetScheme(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.TTSStateProcessing, scheme.TTSState)
}

func TestAggregatorHandleEventMalformedPayload(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	agg, _ := newAggregator(t, h)

	event := &events.Event{
		ID:      uuid.New(),
		Type:    events.TypeTaskCompleted,
		Payload: json.RawMessage(`{"schemeId": "not-a-number"}`),
	}
	assert.Error(t, agg.HandleEvent(context.Background(), event))
}

func TestAggregatorSweep(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		h.createScheme(t, id, 1)
		_, err := h.batches.CreateBatch(ctx, id, batchItems(1), "voice-a", "acme", false)
		require.NoError(t, err)
	}
	h.settleAll(t, 1, domain.TaskStatusSuccess)
	h.settleAll(t, 2, domain.TaskStatusFailed)
	// Scheme 3 still has pending tasks and must stay processing.

	agg, emitter := newAggregator(t, h)
	checked, err := agg.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, checked)

	wantStates := map[int64]domain.TTSState{
		1: domain.TTSStateSuccess,
		2: domain.TTSStateFailed,
		3: domain.TTSStateProcessing,
	}
	for id, want := range wantStates {
		scheme, err := h.schemes.GetScheme(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, scheme.TTSState, "scheme %d", id)
	}
	assert.Len(t, emitter.all(), 2)
}

func TestNewAggregatorNilDeps(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := service.NewAggregator(nil, h.taskRepo, nil, nil)
	assert.Error(t, err)
	_, err = service.NewAggregator(h.schemeRepo, nil, nil, nil)
	assert.Error(t, err)

	// A nil emitter is allowed; events are simply not published.
	agg, err := service.NewAggregator(h.schemeRepo, h.taskRepo, nil, nil)
	require.NoError(t, err)
	require.NoError(t, agg.Reconcile(context.Background(), 404))
}