package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/keylock"
	"github.com/planvox/planvox-api/internal/platform/postgres"
	"github.com/planvox/planvox-api/internal/queue"
	"github.com/planvox/planvox-api/internal/service"
	"github.com/planvox/planvox-api/internal/testdb"
)

// enqueuedJob records one EnqueueGeneration call.
type enqueuedJob struct {
	payload queue.GenerationPayload
	jobID   string
}

// fakeEnqueuer collects enqueued jobs instead of talking to Redis.
type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
}

func (f *fakeEnqueuer) EnqueueGeneration(
	_ context.Context,
	payload queue.GenerationPayload,
	jobID string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, enqueuedJob{payload: payload, jobID: jobID})
	return jobID, nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// fakeCleaner records ClearSchemeJobs calls.
type fakeCleaner struct {
	mu      sync.Mutex
	cleared []int64
	removed int
	err     error
}

func (f *fakeCleaner) ClearSchemeJobs(_ context.Context, schemeID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, f.err
	}
	f.cleared = append(f.cleared, schemeID)
	return f.removed, nil
}

// serviceHarness wires the services against real stores on an in-memory
// database, with the queue faked out.
type serviceHarness struct {
	db         *sql.DB
	schemeRepo service.SchemeRepository
	taskRepo   service.TaskRepository
	enqueuer   *fakeEnqueuer
	cleaner    *fakeCleaner
	locks      *keylock.KeyedLock
	schemes    service.SchemeService
	documents  service.DocumentService
	batches    service.BatchService
}

func newHarness(t *testing.T) *serviceHarness {
	t.Helper()

	db := testdb.New(t)
	schemeRepo := service.NewSchemeRepositoryAdapter(postgres.NewPostgresSchemeStore(db, nil), db)
	taskRepo := service.NewTaskRepositoryAdapter(postgres.NewPostgresSpeechTaskStore(db, nil), db)
	enqueuer := &fakeEnqueuer{}
	cleaner := &fakeCleaner{}
	locks := keylock.NewKeyedLock()

	schemes, err := service.NewSchemeService(schemeRepo, nil)
	require.NoError(t, err)
	documents, err := service.NewDocumentService(schemeRepo, locks, nil)
	require.NoError(t, err)
	batches, err := service.NewBatchService(schemeRepo, taskRepo, enqueuer, cleaner, locks, nil)
	require.NoError(t, err)

	return &serviceHarness{
		db:         db,
		schemeRepo: schemeRepo,
		taskRepo:   taskRepo,
		enqueuer:   enqueuer,
		cleaner:    cleaner,
		locks:      locks,
		schemes:    schemes,
		documents:  documents,
		batches:    batches,
	}
}

// createScheme persists a scheme with the given number of document segments.
func (h *serviceHarness) createScheme(t *testing.T, id int64, segments int) *domain.Scheme {
	t.Helper()

	document := make([]domain.Segment, 0, segments)
	for i := 0; i < segments; i++ {
		document = append(document, domain.Segment{
			PlanNumber:    i + 1,
			SchemeContent: fmt.Sprintf("segment %d content", i+1),
		})
	}

	scheme, err := h.schemes.CreateScheme(
		context.Background(), id, fmt.Sprintf("scheme %d", id), document)
	require.NoError(t, err)
	return scheme
}

// batchItems builds one BatchItem per document segment.
func batchItems(segments int) []service.BatchItem {
	items := make([]service.BatchItem, 0, segments)
	for i := 0; i < segments; i++ {
		items = append(items, service.BatchItem{
			SchemeIndex: i,
			Begin:       fmt.Sprintf("begin %d", i),
			Middle:      fmt.Sprintf("middle %d", i),
			End:         fmt.Sprintf("end %d", i),
		})
	}
	return items
}

// settleAll drives every pending task of the scheme to the given status.
func (h *serviceHarness) settleAll(t *testing.T, schemeID int64, status domain.TaskStatus) {
	t.Helper()

	tasks, err := h.taskRepo.ListByScheme(context.Background(), schemeID)
	require.NoError(t, err)

	for _, task := range tasks {
		if task.Status != domain.TaskStatusPending {
			continue
		}
		switch status {
		case domain.TaskStatusSuccess:
			task.MarkSuccess(fmt.Sprintf("nats://speech-audio/%d-%d-%s.wav",
				task.SchemeID, task.SchemeIndex, task.SegmentKey))
		case domain.TaskStatusFailed:
			task.MarkFailed("failed after 3 attempts: provider unavailable")
		default:
			t.Fatalf("settleAll does not support status %s", status)
		}
		require.NoError(t, h.taskRepo.Update(context.Background(), task))
	}
}
