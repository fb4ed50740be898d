package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/sources"
)

// SearchPayload asks the search catalog to locate one manga entry by title.
type SearchPayload struct {
	EntryID     string `json:"entryId"`
	Title       string `json:"title"`
	TitleNative string `json:"titleNative"`
}

// StatsPayload asks for the volume/chapter breakdown of an already-matched
// catalog record. It is enqueued by the search step, never awaited inline.
type StatsPayload struct {
	EntryID   string `json:"entryId"`
	CatalogID string `json:"catalogId"`
}

// MangaPipeline backfills volume/chapter completion for manga and light
// novels: search by title, disambiguate, then either take the completed
// record's final numbers directly or cascade into an aggregate sub-fetch.
type MangaPipeline struct {
	store  *data.Store
	source sources.CatalogSource
	stats  Enqueuer
	log    *zap.SugaredLogger
}

func NewMangaPipeline(store *data.Store, source sources.CatalogSource, log *zap.SugaredLogger) *MangaPipeline {
	return &MangaPipeline{store: store, source: source, log: log}
}

// SetStatsQueue wires the cascade target. Done after construction because the
// stats queue's handler is this same pipeline.
func (p *MangaPipeline) SetStatsQueue(q Enqueuer) { p.stats = q }

// HandleSearch searches the catalog, picks a candidate, and either writes the
// final counters (explicitly completed records) or enqueues the stats job.
func (p *MangaPipeline) HandleSearch(ctx context.Context, raw []byte) (string, error) {
	var payload SearchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode search payload: %w", err)
	}

	query := payload.Title
	if payload.TitleNative != "" {
		query = payload.TitleNative
	}

	candidates, err := p.source.SearchManga(ctx, query)
	if err != nil {
		return "", err
	}
	match, ok := MatchCandidate(MatchTarget{Title: payload.Title, NativeTitle: payload.TitleNative}, candidates)
	if !ok {
		return "", fmt.Errorf("no catalog records for %q", query)
	}

	if volumes, chapters, done := completedCounts(match); done {
		if err := p.store.UpdateEntryCounters(ctx, payload.EntryID, volumes, chapters); err != nil {
			return "", err
		}
		p.log.Infow("counters taken from completed record", "entry", payload.EntryID, "catalog", match.ID)
		result, _ := json.Marshal(map[string]any{"catalogId": match.ID, "volumes": volumes, "chapters": chapters})
		return string(result), nil
	}

	jobID, err := p.stats.Enqueue(ctx, StatsPayload{EntryID: payload.EntryID, CatalogID: match.ID})
	if err != nil {
		return "", fmt.Errorf("cascade stats job: %w", err)
	}
	result, _ := json.Marshal(map[string]string{"catalogId": match.ID, "statsJob": jobID})
	return string(result), nil
}

// HandleStats fetches the aggregate breakdown and overwrites the counters.
func (p *MangaPipeline) HandleStats(ctx context.Context, raw []byte) (string, error) {
	var payload StatsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode stats payload: %w", err)
	}

	entry, err := p.store.GetEntry(ctx, payload.EntryID)
	if err != nil {
		return "", fmt.Errorf("load entry for stats: %w", err)
	}

	agg, err := p.source.FetchVolumeAggregate(ctx, payload.CatalogID)
	if err != nil {
		return "", err
	}
	volumes, chapters := DeriveCounts(agg)

	if err := p.store.UpdateEntryCounters(ctx, payload.EntryID, volumes, chapters); err != nil {
		return "", err
	}

	if entry.Kind == data.KindLightNovel {
		if err := p.store.ReplaceVolumeProgressRange(ctx, payload.EntryID, volumes); err != nil {
			return "", err
		}
	}

	p.log.Infow("counters derived from aggregate", "entry", payload.EntryID, "volumes", volumes, "chapters", chapters)
	result, _ := json.Marshal(map[string]int{"volumes": volumes, "chapters": chapters})
	return string(result), nil
}

// completedCounts extracts final counters from a record that reports itself
// completed with parseable last volume/chapter numbers.
func completedCounts(c sources.Candidate) (volumes, chapters int, ok bool) {
	if c.Status != "completed" {
		return 0, 0, false
	}
	v, errV := strconv.ParseFloat(c.LastVolume, 64)
	ch, errC := strconv.ParseFloat(c.LastChapter, 64)
	if errV != nil || errC != nil {
		return 0, 0, false
	}
	return int(math.Floor(v)), int(math.Floor(ch)), true
}

// DeriveCounts computes counters from an aggregate breakdown: volumes is the
// highest explicit volume key plus one (the implicit "none" bucket holds the
// latest, still-unbound chapters), chapters is the highest chapter number in
// that bucket, floored.
func DeriveCounts(agg sources.VolumeAggregate) (volumes, chapters int) {
	maxVolume := 0
	for key := range agg {
		if key == "none" {
			continue
		}
		if n, err := strconv.Atoi(key); err == nil && n > maxVolume {
			maxVolume = n
		}
	}
	volumes = maxVolume + 1

	if bucket, ok := agg["none"]; ok {
		maxChapter := 0.0
		for _, key := range bucket.ChapterKeys {
			if n, err := strconv.ParseFloat(key, 64); err == nil && n > maxChapter {
				maxChapter = n
			}
		}
		chapters = int(math.Floor(maxChapter))
	}
	return volumes, chapters
}
