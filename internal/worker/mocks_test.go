package worker_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/events"
	"github.com/planvox/planvox-api/internal/keylock"
	"github.com/planvox/planvox-api/internal/platform/postgres"
	"github.com/planvox/planvox-api/internal/queue"
	"github.com/planvox/planvox-api/internal/service"
	"github.com/planvox/planvox-api/internal/speech"
	"github.com/planvox/planvox-api/internal/testdb"
	"github.com/planvox/planvox-api/internal/worker"
)

// scriptedSynthesizer fails requests whose text contains "unavailable" and
// fabricates audio for everything else.
type scriptedSynthesizer struct {
	mu    sync.Mutex
	calls int
}

func (s *scriptedSynthesizer) Synthesize(_ context.Context, req speech.Request) (*speech.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if strings.Contains(req.Text, "unavailable") {
		return nil, fmt.Errorf("%w: provider unavailable", speech.ErrSynthesisFailed)
	}
	return &speech.Result{
		Audio: []byte("RIFF" + req.Text),
		Model: "acme-tts-1",
	}, nil
}

func (s *scriptedSynthesizer) HealthCheck(_ context.Context) error { return nil }

func (s *scriptedSynthesizer) Name() string { return "acme" }

func (s *scriptedSynthesizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeUploader stores uploads in memory and mints bucket-style URLs.
type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[name] = data
	return "nats://speech-audio/" + name, nil
}

func (f *fakeUploader) object(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	return data, ok
}

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

// workerHarness wires a GenerationHandler against real stores on an
// in-memory database, with the provider and object store faked out.
type workerHarness struct {
	tasks       *postgres.PostgresSpeechTaskStore
	schemes     *postgres.PostgresSchemeStore
	documents   service.DocumentService
	registry    *speech.Registry
	synthesizer *scriptedSynthesizer
	uploader    *fakeUploader
	emitter     *captureEmitter
	handler     *worker.GenerationHandler
}

func newWorkerHarness(t *testing.T) *workerHarness {
	t.Helper()

	db := testdb.New(t)
	taskStore := postgres.NewPostgresSpeechTaskStore(db, nil)
	schemeStore := postgres.NewPostgresSchemeStore(db, nil)
	schemeRepo := service.NewSchemeRepositoryAdapter(schemeStore, db)

	documents, err := service.NewDocumentService(schemeRepo, keylock.NewKeyedLock(), nil)
	require.NoError(t, err)

	synthesizer := &scriptedSynthesizer{}
	registry := speech.NewRegistry(synthesizer.Name())
	registry.Register(synthesizer)

	uploader := &fakeUploader{}
	emitter := &captureEmitter{}

	handler, err := worker.NewGenerationHandler(
		taskStore, documents, registry, uploader,
		queue.NewRateGate(100, time.Minute), emitter, nil)
	require.NoError(t, err)

	return &workerHarness{
		tasks:       taskStore,
		schemes:     schemeStore,
		documents:   documents,
		registry:    registry,
		synthesizer: synthesizer,
		uploader:    uploader,
		emitter:     emitter,
		handler:     handler,
	}
}

// gatedHandler builds a handler over the harness stores with its own rate
// gate allowing n requests per minute.
func (h *workerHarness) gatedHandler(t *testing.T, n int) *worker.GenerationHandler {
	t.Helper()

	handler, err := worker.NewGenerationHandler(
		h.tasks, h.documents, h.registry, h.uploader,
		queue.NewRateGate(n, time.Minute), h.emitter, nil)
	require.NoError(t, err)
	return handler
}

// seedScheme persists a scheme with one segment per plan number given.
func (h *workerHarness) seedScheme(t *testing.T, id int64, segments int) *domain.Scheme {
	t.Helper()

	document := make([]domain.Segment, 0, segments)
	for i := 0; i < segments; i++ {
		document = append(document, domain.Segment{
			PlanNumber:    i + 1,
			SchemeContent: fmt.Sprintf("segment %d content", i+1),
		})
	}

	scheme, err := domain.NewScheme(id, fmt.Sprintf("scheme %d", id), document)
	require.NoError(t, err)
	require.NoError(t, h.schemes.Create(context.Background(), scheme))
	return scheme
}

// seedTask persists a pending task and returns it with its queue payload.
func (h *workerHarness) seedTask(
	t *testing.T,
	schemeID int64,
	schemeIndex int,
	key domain.SegmentKey,
	text string,
) (*domain.SpeechTask, queue.GenerationPayload) {
	t.Helper()

	task, err := domain.NewSpeechTask(schemeID, schemeIndex, key, text, "voice-a", "acme")
	require.NoError(t, err)
	require.NoError(t, h.tasks.Create(context.Background(), task))

	return task, queue.GenerationPayload{
		TaskID:      task.ID,
		SchemeID:    schemeID,
		SchemeIndex: schemeIndex,
		SegmentKey:  key,
		Text:        text,
		VoiceName:   task.VoiceName,
		Provider:    task.Provider,
	}
}
