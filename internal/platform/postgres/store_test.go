package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planvox/planvox-api/internal/domain"
	"github.com/planvox/planvox-api/internal/testdb"
)

// newTestDB opens an isolated in-memory database with the schema applied.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return testdb.New(t)
}

// mustCreateScheme inserts a scheme with the given document and returns it.
func mustCreateScheme(t *testing.T, store *PostgresSchemeStore, id int64, segments int) *domain.Scheme {
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
	require.NoError(t, store.Create(testCtx(t), scheme))
	return scheme
}

// mustCreateTask inserts a pending task at the given key and returns it.
func mustCreateTask(
	t *testing.T,
	store *PostgresSpeechTaskStore,
	schemeID int64,
	index int,
	key domain.SegmentKey,
) *domain.SpeechTask {
	t.Helper()

	task, err := domain.NewSpeechTask(schemeID, index, key, "text for "+string(key), "voice-a", "acme")
	require.NoError(t, err)
	require.NoError(t, store.Create(testCtx(t), task))
	return task
}

// testCtx returns a context with a deadline tied to the test.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
