package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/sources"
)

// EpisodesPayload asks for the episode list of one anime entry. The external
// id is already known, so no candidate matching is involved.
type EpisodesPayload struct {
	EntryID    string `json:"entryId"`
	ExternalID int64  `json:"externalId"`
}

// AnimePipeline backfills episode lists from the episode catalog.
type AnimePipeline struct {
	store  *data.Store
	source sources.EpisodeSource
	log    *zap.SugaredLogger
}

func NewAnimePipeline(store *data.Store, source sources.EpisodeSource, log *zap.SugaredLogger) *AnimePipeline {
	return &AnimePipeline{store: store, source: source, log: log}
}

// HandleEpisodes fetches and persists the entry's episode list. The write is
// a full replace, so reprocessing the same payload is a no-op.
func (p *AnimePipeline) HandleEpisodes(ctx context.Context, raw []byte) (string, error) {
	var payload EpisodesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode episodes payload: %w", err)
	}

	episodes, err := p.source.FetchEpisodes(ctx, payload.ExternalID)
	if err != nil {
		return "", err
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Number < episodes[j].Number })
	for i := range episodes {
		episodes[i].EntryID = payload.EntryID
	}

	if err := p.store.ReplaceEpisodes(ctx, payload.EntryID, episodes); err != nil {
		return "", err
	}

	p.log.Infow("episodes backfilled", "entry", payload.EntryID, "count", len(episodes))
	result, _ := json.Marshal(map[string]int{"episodes": len(episodes)})
	return string(result), nil
}
