package data

import "time"

// MediaKind discriminates catalog entries. Light novels share the manga shape
// (volumes/chapters) but additionally carry per-volume progress rows.
type MediaKind string

const (
	KindAnime      MediaKind = "anime"
	KindManga      MediaKind = "manga"
	KindLightNovel MediaKind = "lightnovel"
)

// EntityKind discriminates cross-reference entities.
type EntityKind string

const (
	EntityAuthor EntityKind = "author"
	EntityGenre  EntityKind = "genre"
	EntityTheme  EntityKind = "theme"
	EntityStudio EntityKind = "studio"
)

// Entry is one catalog record. ExternalID is the natural key from the source
// catalog (unique per kind); counters are nullable until enrichment fills them.
type Entry struct {
	ID            string
	Kind          MediaKind
	Title         string
	TitleNative   string
	TitleSynonyms string
	ExternalID    int64
	Type          string
	Status        string
	Score         float64
	VolumesCount  *int
	ChaptersCount *int
	CreatedAt     time.Time
}

// Entity is a shared tag-like row (author/genre/theme/studio) linked from many
// entries. Name keeps first-seen casing; uniqueness is on the lowercased form.
type Entity struct {
	ID   string
	Kind EntityKind
	Name string
}

// Episode is one ordered episode record for an anime entry.
type Episode struct {
	EntryID     string
	Number      int
	Title       string
	TitleNative string
	TitleRomaji string
	Aired       string
}

// VolumeProgress is one per-volume consumption row for a light novel.
type VolumeProgress struct {
	EntryID      string
	VolumeNumber int
	ConsumedAt   *time.Time
}

type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Job is one job-ledger row. Terminal once COMPLETED or FAILED.
type Job struct {
	ID          string
	Queue       string
	Status      JobStatus
	Payload     string
	Result      string
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}
