package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/utils"
)

// chunkSize is how many entries share one transaction during bulk ingestion.
const chunkSize = 5

// RawEntry is one admin-submitted catalog entry before validation.
type RawEntry struct {
	Title         string   `json:"title"`
	TitleNative   string   `json:"titleNative"`
	TitleSynonyms string   `json:"titleSynonyms"`
	ExternalID    int64    `json:"externalId"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	Score         float64  `json:"score"`
	Authors       []string `json:"authors"`
	Genres        []string `json:"genres"`
	Themes        []string `json:"themes"`
	Studios       []string `json:"studios"`
	VolumesCount  *int     `json:"volumesCount"`
	ChaptersCount *int     `json:"chaptersCount"`
}

type ItemStatus string

const (
	StatusCreated   ItemStatus = "created"
	StatusDuplicate ItemStatus = "duplicate"
	StatusInvalid   ItemStatus = "invalid"
	StatusFailed    ItemStatus = "failed"
)

// ItemResult is the per-item outcome of a bulk ingestion.
type ItemResult struct {
	Index      int
	ExternalID int64
	EntryID    string
	Status     ItemStatus
	Err        error
}

// Ingestor creates catalog entries in chunked transactions and hands eligible
// ones to the enrichment queues. Committed chunks stay committed no matter
// what happens to later chunks.
type Ingestor struct {
	store      *data.Store
	resolver   *EntityResolver
	animeQueue Enqueuer
	mangaQueue Enqueuer
	log        *zap.SugaredLogger
}

func NewIngestor(store *data.Store, resolver *EntityResolver, animeQueue, mangaQueue Enqueuer, log *zap.SugaredLogger) *Ingestor {
	return &Ingestor{
		store:      store,
		resolver:   resolver,
		animeQueue: animeQueue,
		mangaQueue: mangaQueue,
		log:        log,
	}
}

// Ingest validates, resolves entities for, and persists a batch of entries.
// The result slice is index-aligned with the input.
func (ing *Ingestor) Ingest(ctx context.Context, kind data.MediaKind, entries []RawEntry) []ItemResult {
	results := make([]ItemResult, len(entries))
	var valid []int
	for i, e := range entries {
		results[i] = ItemResult{Index: i, ExternalID: e.ExternalID}
		if err := validateEntry(kind, e); err != nil {
			results[i].Status = StatusInvalid
			results[i].Err = err
			continue
		}
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return results
	}

	// Resolve the union of all names across the batch before creating
	// anything, so two items introducing the same new name share one row.
	resolved, err := ing.resolveAll(ctx, entries, valid)
	if err != nil {
		ing.log.Errorw("entity resolution failed", "kind", kind, "error", err)
		for _, i := range valid {
			results[i].Status = StatusFailed
			results[i].Err = err
		}
		return results
	}

	staged := make(map[int]data.NewEntry, len(valid))
	for _, i := range valid {
		staged[i] = stageEntry(kind, entries[i], resolved)
		results[i].EntryID = staged[i].ID
	}

	for _, chunk := range utils.Chunk(valid, chunkSize) {
		created := ing.ingestChunk(ctx, chunk, staged, results)
		for _, i := range created {
			ing.enqueueEnrichment(ctx, kind, staged[i])
		}
	}
	return results
}

// ingestChunk commits one chunk, retrying without duplicates and once more on
// an unexpected storage failure. Returns the indexes that were created.
func (ing *Ingestor) ingestChunk(ctx context.Context, chunk []int, staged map[int]data.NewEntry, results []ItemResult) []int {
	pending := append([]int(nil), chunk...)
	retried := false

	for len(pending) > 0 {
		items := make([]data.NewEntry, len(pending))
		for n, i := range pending {
			items[n] = staged[i]
		}

		err := ing.store.CreateEntries(ctx, items)
		if err == nil {
			for _, i := range pending {
				results[i].Status = StatusCreated
			}
			return pending
		}

		var dup *data.DuplicateEntryError
		if errors.As(err, &dup) {
			// The collision aborts the chunk. When the id appears more
			// than once in the chunk the collision is internal: keep the
			// first occurrence and re-run. If the id already exists in
			// the catalog, the survivor collides again on the next pass
			// and is dropped then.
			matches := 0
			for _, i := range pending {
				if results[i].ExternalID == dup.ExternalID {
					matches++
				}
			}
			next := pending[:0]
			kept := false
			for _, i := range pending {
				if results[i].ExternalID == dup.ExternalID {
					if matches > 1 && !kept {
						kept = true
						next = append(next, i)
						continue
					}
					results[i].Status = StatusDuplicate
					results[i].Err = dup
					continue
				}
				next = append(next, i)
			}
			pending = next
			continue
		}

		if !retried {
			ing.log.Warnw("chunk transaction failed, retrying once", "error", err)
			retried = true
			continue
		}
		for _, i := range pending {
			results[i].Status = StatusFailed
			results[i].Err = err
		}
		return nil
	}
	return nil
}

func (ing *Ingestor) resolveAll(ctx context.Context, entries []RawEntry, valid []int) (map[data.EntityKind]map[string]string, error) {
	names := map[data.EntityKind][]string{}
	for _, i := range valid {
		names[data.EntityAuthor] = append(names[data.EntityAuthor], entries[i].Authors...)
		names[data.EntityGenre] = append(names[data.EntityGenre], entries[i].Genres...)
		names[data.EntityTheme] = append(names[data.EntityTheme], entries[i].Themes...)
		names[data.EntityStudio] = append(names[data.EntityStudio], entries[i].Studios...)
	}

	resolved := map[data.EntityKind]map[string]string{}
	for kind, list := range names {
		if len(list) == 0 {
			continue
		}
		m, err := ing.resolver.Resolve(ctx, kind, list)
		if err != nil {
			return nil, err
		}
		resolved[kind] = m
	}
	return resolved, nil
}

func stageEntry(kind data.MediaKind, e RawEntry, resolved map[data.EntityKind]map[string]string) data.NewEntry {
	staged := data.NewEntry{
		Entry: data.Entry{
			ID:            uuid.NewString(),
			Kind:          kind,
			Title:         e.Title,
			TitleNative:   e.TitleNative,
			TitleSynonyms: e.TitleSynonyms,
			ExternalID:    e.ExternalID,
			Type:          e.Type,
			Status:        e.Status,
			Score:         e.Score,
			VolumesCount:  e.VolumesCount,
			ChaptersCount: e.ChaptersCount,
		},
	}
	appendIDs := func(kind data.EntityKind, names []string) {
		m := resolved[kind]
		for _, name := range names {
			if id, ok := m[NormalizeName(name)]; ok {
				staged.EntityIDs = append(staged.EntityIDs, id)
			}
		}
	}
	appendIDs(data.EntityAuthor, e.Authors)
	appendIDs(data.EntityGenre, e.Genres)
	appendIDs(data.EntityTheme, e.Themes)
	appendIDs(data.EntityStudio, e.Studios)
	return staged
}

// enqueueEnrichment hands a freshly committed entry to its queue when its
// structural data is not fully known yet. Handoff failures are logged only;
// the entry itself is already committed.
func (ing *Ingestor) enqueueEnrichment(ctx context.Context, kind data.MediaKind, entry data.NewEntry) {
	var (
		jobID string
		err   error
	)
	switch kind {
	case data.KindAnime:
		if !animeEligible(entry.Entry) || ing.animeQueue == nil {
			return
		}
		jobID, err = ing.animeQueue.Enqueue(ctx, EpisodesPayload{EntryID: entry.ID, ExternalID: entry.ExternalID})
	case data.KindManga, data.KindLightNovel:
		if !mangaEligible(entry.Entry) || ing.mangaQueue == nil {
			return
		}
		jobID, err = ing.mangaQueue.Enqueue(ctx, SearchPayload{EntryID: entry.ID, Title: entry.Title, TitleNative: entry.TitleNative})
	default:
		return
	}
	if err != nil {
		ing.log.Warnw("enrichment handoff failed", "entry", entry.ID, "error", err)
		return
	}
	ing.log.Debugw("enrichment job queued", "entry", entry.ID, "job", jobID)
}

// animeEligible excludes movies/OVAs (no episode list to fetch) and anything
// still airing or unaired (the list would be incomplete anyway).
func animeEligible(e data.Entry) bool {
	switch e.Type {
	case "Movie", "OVA":
		return false
	}
	switch e.Status {
	case "Currently Airing", "Not yet aired", "Ongoing", "Upcoming":
		return false
	}
	return true
}

// mangaEligible excludes upcoming titles; the catalog has nothing for them.
func mangaEligible(e data.Entry) bool {
	return e.Status != "Upcoming"
}

func validateEntry(kind data.MediaKind, e RawEntry) error {
	if e.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if e.ExternalID <= 0 {
		return &ValidationError{Field: "externalId", Reason: "must be positive"}
	}
	if e.VolumesCount != nil && *e.VolumesCount < 0 {
		return &ValidationError{Field: "volumesCount", Reason: "must not be negative"}
	}
	if e.ChaptersCount != nil && *e.ChaptersCount < 0 {
		return &ValidationError{Field: "chaptersCount", Reason: "must not be negative"}
	}
	if kind == data.KindAnime && (e.VolumesCount != nil || e.ChaptersCount != nil) {
		return &ValidationError{Field: "volumesCount", Reason: "not applicable to anime"}
	}
	return nil
}
