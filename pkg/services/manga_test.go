package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/sources"
)

func seedEntry(t *testing.T, store *data.Store, kind data.MediaKind, title string) *data.Entry {
	t.Helper()

	entry := data.Entry{ID: uuid.NewString(), Kind: kind, Title: title, ExternalID: int64(len(title)) + 1}
	require.NoError(t, store.CreateEntries(context.Background(), []data.NewEntry{{Entry: entry}}))
	return &entry
}

func searchPayload(t *testing.T, p SearchPayload) []byte {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestSearchCompletedRecordShortcut(t *testing.T) {
	store := setupTestStore(t)
	entry := seedEntry(t, store, data.KindManga, "Fullmetal Alchemist")

	catalog := &mockCatalogSource{
		search: func(_ context.Context, title string) ([]sources.Candidate, error) {
			assert.Equal(t, "Fullmetal Alchemist", title)
			return []sources.Candidate{{
				ID: "cat-1", Title: "Fullmetal Alchemist",
				Status: "completed", LastVolume: "27", LastChapter: "116.5",
			}}, nil
		},
	}
	stats := &mockEnqueuer{}
	pipeline := NewMangaPipeline(store, catalog, testLogger())
	pipeline.SetStatsQueue(stats)

	result, err := pipeline.HandleSearch(context.Background(), searchPayload(t, SearchPayload{
		EntryID: entry.ID, Title: entry.Title,
	}))
	require.NoError(t, err)
	assert.Contains(t, result, `"catalogId":"cat-1"`)
	assert.Zero(t, stats.count(), "completed records never cascade")

	got, err := store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.VolumesCount)
	require.NotNil(t, got.ChaptersCount)
	assert.Equal(t, 27, *got.VolumesCount)
	assert.Equal(t, 116, *got.ChaptersCount, "fractional chapter numbers are floored")
}

func TestSearchOngoingRecordCascadesToStats(t *testing.T) {
	store := setupTestStore(t)
	entry := seedEntry(t, store, data.KindManga, "One Piece")

	catalog := &mockCatalogSource{
		search: func(context.Context, string) ([]sources.Candidate, error) {
			return []sources.Candidate{{ID: "cat-op", Title: "One Piece", Status: "ongoing"}}, nil
		},
	}
	stats := &mockEnqueuer{}
	pipeline := NewMangaPipeline(store, catalog, testLogger())
	pipeline.SetStatsQueue(stats)

	_, err := pipeline.HandleSearch(context.Background(), searchPayload(t, SearchPayload{
		EntryID: entry.ID, Title: entry.Title,
	}))
	require.NoError(t, err)

	require.Equal(t, 1, stats.count())
	payload, ok := stats.payloads[0].(StatsPayload)
	require.True(t, ok)
	assert.Equal(t, entry.ID, payload.EntryID)
	assert.Equal(t, "cat-op", payload.CatalogID)
}

func TestSearchPrefersNativeTitleQuery(t *testing.T) {
	store := setupTestStore(t)
	entry := seedEntry(t, store, data.KindManga, "Demon Slayer")

	var queried string
	catalog := &mockCatalogSource{
		search: func(_ context.Context, title string) ([]sources.Candidate, error) {
			queried = title
			return []sources.Candidate{{ID: "c", Title: "Demon Slayer", Status: "completed", LastVolume: "23", LastChapter: "205"}}, nil
		},
	}
	pipeline := NewMangaPipeline(store, catalog, testLogger())
	pipeline.SetStatsQueue(&mockEnqueuer{})

	_, err := pipeline.HandleSearch(context.Background(), searchPayload(t, SearchPayload{
		EntryID: entry.ID, Title: entry.Title, TitleNative: "鬼滅の刃",
	}))
	require.NoError(t, err)
	assert.Equal(t, "鬼滅の刃", queried)
}

func TestSearchNoCandidatesFails(t *testing.T) {
	store := setupTestStore(t)
	entry := seedEntry(t, store, data.KindManga, "Obscure Doujin")

	catalog := &mockCatalogSource{
		search: func(context.Context, string) ([]sources.Candidate, error) { return nil, nil },
	}
	pipeline := NewMangaPipeline(store, catalog, testLogger())
	pipeline.SetStatsQueue(&mockEnqueuer{})

	_, err := pipeline.HandleSearch(context.Background(), searchPayload(t, SearchPayload{
		EntryID: entry.ID, Title: entry.Title,
	}))
	assert.Error(t, err)
}

func TestStatsDerivesCountersFromAggregate(t *testing.T) {
	store := setupTestStore(t)
	entry := seedEntry(t, store, data.KindManga, "Vagabond")

	catalog := &mockCatalogSource{
		aggregate: func(_ context.Context, catalogID string) (sources.VolumeAggregate, error) {
			assert.Equal(t, "cat-v", catalogID)
			return sources.VolumeAggregate{
				"1":    {ChapterCount: 8, ChapterKeys: []string{"1", "2", "3"}},
				"2":    {ChapterCount: 9, ChapterKeys: []string{"9", "10"}},
				"none": {ChapterCount: 2, ChapterKeys: []string{"10.5", "11"}},
			}, nil
		},
	}
	pipeline := NewMangaPipeline(store, catalog, testLogger())

	raw, err := json.Marshal(StatsPayload{EntryID: entry.ID, CatalogID: "cat-v"})
	require.NoError(t, err)
	_, err = pipeline.HandleStats(context.Background(), raw)
	require.NoError(t, err)

	got, err := store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.VolumesCount)
	require.NotNil(t, got.ChaptersCount)
	assert.Equal(t, 3, *got.VolumesCount, "highest bound volume plus the unbound bucket")
	assert.Equal(t, 11, *got.ChaptersCount)
}

func TestStatsRecreatesLightNovelVolumeRange(t *testing.T) {
	store := setupTestStore(t)
	entry := seedEntry(t, store, data.KindLightNovel, "Overlord")

	catalog := &mockCatalogSource{
		aggregate: func(context.Context, string) (sources.VolumeAggregate, error) {
			return sources.VolumeAggregate{
				"1": {ChapterKeys: []string{"1"}},
				"3": {ChapterKeys: []string{"12"}},
			}, nil
		},
	}
	pipeline := NewMangaPipeline(store, catalog, testLogger())

	raw, err := json.Marshal(StatsPayload{EntryID: entry.ID, CatalogID: "cat-ov"})
	require.NoError(t, err)
	_, err = pipeline.HandleStats(context.Background(), raw)
	require.NoError(t, err)

	progress, err := store.ListVolumeProgress(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, progress, 4)
	for i, p := range progress {
		assert.Equal(t, i+1, p.VolumeNumber)
		assert.Nil(t, p.ConsumedAt)
	}
}

func TestStatsFailsWhenEntryLookupFails(t *testing.T) {
	store := setupTestStore(t)

	catalog := &mockCatalogSource{
		aggregate: func(context.Context, string) (sources.VolumeAggregate, error) {
			t.Error("aggregate must not be fetched when the entry cannot be loaded")
			return nil, nil
		},
	}
	pipeline := NewMangaPipeline(store, catalog, testLogger())

	raw, err := json.Marshal(StatsPayload{EntryID: "no-such-entry", CatalogID: "cat-x"})
	require.NoError(t, err)
	_, err = pipeline.HandleStats(context.Background(), raw)

	require.Error(t, err, "a failed lookup must fail the job so retry can run")
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestDeriveCounts(t *testing.T) {
	cases := []struct {
		name     string
		agg      sources.VolumeAggregate
		volumes  int
		chapters int
	}{
		{
			name: "unbound bucket floors fractional chapters",
			agg: sources.VolumeAggregate{
				"1":    {ChapterKeys: []string{"1", "2"}},
				"2":    {ChapterKeys: []string{"3"}},
				"none": {ChapterKeys: []string{"10.5", "11"}},
			},
			volumes:  3,
			chapters: 11,
		},
		{
			name:     "no unbound bucket",
			agg:      sources.VolumeAggregate{"1": {}, "2": {}},
			volumes:  3,
			chapters: 0,
		},
		{
			name:     "only unbound chapters",
			agg:      sources.VolumeAggregate{"none": {ChapterKeys: []string{"4", "5.1"}}},
			volumes:  1,
			chapters: 5,
		},
		{
			name:     "non-numeric keys ignored",
			agg:      sources.VolumeAggregate{"extra": {}, "2": {}, "none": {ChapterKeys: []string{"oneshot", "7"}}},
			volumes:  3,
			chapters: 7,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			volumes, chapters := DeriveCounts(tc.agg)
			assert.Equal(t, tc.volumes, volumes)
			assert.Equal(t, tc.chapters, chapters)
		})
	}
}

func TestCompletedCounts(t *testing.T) {
	_, _, ok := completedCounts(sources.Candidate{Status: "ongoing", LastVolume: "3", LastChapter: "20"})
	assert.False(t, ok)

	_, _, ok = completedCounts(sources.Candidate{Status: "completed", LastVolume: "", LastChapter: "20"})
	assert.False(t, ok, "unparseable numbers fall through to the aggregate path")

	volumes, chapters, ok := completedCounts(sources.Candidate{Status: "completed", LastVolume: "12", LastChapter: "96.5"})
	require.True(t, ok)
	assert.Equal(t, 12, volumes)
	assert.Equal(t, 96, chapters)
}
