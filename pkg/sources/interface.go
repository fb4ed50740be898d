package sources

import (
	"context"

	"github.com/kerbaras/otakulog/pkg/data"
)

// EpisodeSource is the external catalog that knows episode lists (catalog A).
// The external id is already known for anime entries, so no searching happens.
type EpisodeSource interface {
	FetchEpisodes(ctx context.Context, externalID int64) ([]data.Episode, error)
}

// Candidate is one search hit from the search+aggregate catalog (catalog B).
type Candidate struct {
	ID              string
	Title           string
	NativeAltTitles []string
	Status          string
	LastVolume      string
	LastChapter     string
}

// VolumeBucket is the per-volume slice of an aggregate response. ChapterKeys
// are the raw chapter numbers as strings; non-numeric keys are possible.
type VolumeBucket struct {
	ChapterCount int
	ChapterKeys  []string
}

// VolumeAggregate maps raw volume keys (including the implicit "none" bucket
// for chapters not yet bound to a volume) to their chapter sets.
type VolumeAggregate map[string]VolumeBucket

// CatalogSource is the search+aggregate catalog used by manga enrichment.
type CatalogSource interface {
	SearchManga(ctx context.Context, title string) ([]Candidate, error)
	FetchVolumeAggregate(ctx context.Context, catalogID string) (VolumeAggregate, error)
}
