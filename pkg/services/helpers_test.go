package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/logger"
	"github.com/kerbaras/otakulog/pkg/sources"
)

func setupTestStore(t *testing.T) *data.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := data.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return data.NewStore(db)
}

func intPtr(v int) *int { return &v }

// mockEnqueuer records payloads instead of dispatching them.
type mockEnqueuer struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (m *mockEnqueuer) Enqueue(_ context.Context, payload any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.payloads = append(m.payloads, payload)
	return "mock-job", nil
}

func (m *mockEnqueuer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

type mockEpisodeSource struct {
	fetch func(ctx context.Context, externalID int64) ([]data.Episode, error)
}

func (m *mockEpisodeSource) FetchEpisodes(ctx context.Context, externalID int64) ([]data.Episode, error) {
	return m.fetch(ctx, externalID)
}

type mockCatalogSource struct {
	search    func(ctx context.Context, title string) ([]sources.Candidate, error)
	aggregate func(ctx context.Context, catalogID string) (sources.VolumeAggregate, error)
}

func (m *mockCatalogSource) SearchManga(ctx context.Context, title string) ([]sources.Candidate, error) {
	return m.search(ctx, title)
}

func (m *mockCatalogSource) FetchVolumeAggregate(ctx context.Context, catalogID string) (sources.VolumeAggregate, error) {
	return m.aggregate(ctx, catalogID)
}

var testLogger = logger.Nop
