package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store is the persistence layer for the catalog. All multi-row writes run
// inside transactions; callers never see a partially applied chunk.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewEntry is one catalog entry staged for creation, with its resolved
// cross-reference links already expressed as entity ids.
type NewEntry struct {
	Entry
	EntityIDs []string
}

// FindEntities returns the entities of a kind whose lowercased names match keys.
func (s *Store) FindEntities(ctx context.Context, kind EntityKind, keys []string) ([]Entity, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, string(kind))
	for _, k := range keys {
		args = append(args, k)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, name FROM entities WHERE kind = ? AND name_key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("find entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEntity inserts one cross-reference entity. The (kind, lowercased name)
// pair is unique; a collision comes back as a duplicate-key error.
func (s *Store) CreateEntity(ctx context.Context, e Entity) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entities (id, kind, name, name_key) VALUES (?, ?, ?, ?)",
		e.ID, string(e.Kind), e.Name, strings.ToLower(strings.TrimSpace(e.Name)))
	if err != nil {
		return fmt.Errorf("create entity %q: %w", e.Name, err)
	}
	return nil
}

// ListEntities returns all entities of a kind, for operator inspection.
func (s *Store) ListEntities(ctx context.Context, kind EntityKind) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, name FROM entities WHERE kind = ? ORDER BY name", string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEntries inserts a chunk of entries atomically: the entry rows, their
// entity links, an empty review shell each, and volume progress rows 1..N for
// light novels that already know their volume count. On a natural-key
// collision the whole chunk rolls back and the offending external id is
// reported through DuplicateEntryError.
func (s *Store) CreateEntries(ctx context.Context, chunk []NewEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer tx.Rollback()

	for _, item := range chunk {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entries (id, kind, title, title_native, title_synonyms, external_id, type, status, score, volumes_count, chapters_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, string(item.Kind), item.Title, item.TitleNative, item.TitleSynonyms,
			item.ExternalID, item.Type, item.Status, item.Score,
			nullableInt(item.VolumesCount), nullableInt(item.ChaptersCount))
		if err != nil {
			if isDuplicateKey(err) {
				return &DuplicateEntryError{Kind: item.Kind, ExternalID: item.ExternalID}
			}
			return fmt.Errorf("insert entry %d: %w", item.ExternalID, err)
		}

		for _, entityID := range item.EntityIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO entry_entities (entry_id, entity_id) VALUES (?, ?)",
				item.ID, entityID); err != nil {
				return fmt.Errorf("link entry %d: %w", item.ExternalID, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO reviews (entry_id) VALUES (?)", item.ID); err != nil {
			return fmt.Errorf("create review shell: %w", err)
		}

		if item.Kind == KindLightNovel && item.VolumesCount != nil {
			if err := insertVolumeRange(ctx, tx, item.ID, *item.VolumesCount); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetEntry returns one entry by id.
func (s *Store) GetEntry(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, title, title_native, title_synonyms, external_id, type, status, score, volumes_count, chapters_count, created_at
		 FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// ListEntries returns all entries of a kind ordered by title.
func (s *Store) ListEntries(ctx context.Context, kind MediaKind) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, title, title_native, title_synonyms, external_id, type, status, score, volumes_count, chapters_count, created_at
		 FROM entries WHERE kind = ? ORDER BY title`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// EntityIDsFor returns the entity ids linked to an entry.
func (s *Store) EntityIDsFor(ctx context.Context, entryID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_id FROM entry_entities WHERE entry_id = ?", entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpdateEntryCounters overwrites the volume/chapter counters of an entry.
// A plain overwrite keeps enrichment reprocessing idempotent.
func (s *Store) UpdateEntryCounters(ctx context.Context, id string, volumes, chapters int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET volumes_count = ?, chapters_count = ? WHERE id = ?",
		volumes, chapters, id)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReplaceEpisodes atomically replaces the episode list of an entry.
func (s *Store) ReplaceEpisodes(ctx context.Context, entryID string, episodes []Episode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin episodes tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM episodes WHERE entry_id = ?", entryID); err != nil {
		return fmt.Errorf("clear episodes: %w", err)
	}
	for _, ep := range episodes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO episodes (entry_id, number, title, title_native, title_romaji, aired) VALUES (?, ?, ?, ?, ?, ?)",
			entryID, ep.Number, ep.Title, ep.TitleNative, ep.TitleRomaji, ep.Aired); err != nil {
			return fmt.Errorf("insert episode %d: %w", ep.Number, err)
		}
	}
	return tx.Commit()
}

// ListEpisodes returns an entry's episodes ordered by number.
func (s *Store) ListEpisodes(ctx context.Context, entryID string) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entry_id, number, title, title_native, title_romaji, aired FROM episodes WHERE entry_id = ? ORDER BY number",
		entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.EntryID, &ep.Number, &ep.Title, &ep.TitleNative, &ep.TitleRomaji, &ep.Aired); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// ReplaceVolumeProgressRange rebuilds the 1..count progress range for a light
// novel, keeping consumedAt for volume numbers that survive the resize.
func (s *Store) ReplaceVolumeProgressRange(ctx context.Context, entryID string, count int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin volume tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM volume_progress WHERE entry_id = ? AND volume_number > ?", entryID, count); err != nil {
		return fmt.Errorf("trim volume range: %w", err)
	}

	row := tx.QueryRowContext(ctx,
		"SELECT coalesce(max(volume_number), 0) FROM volume_progress WHERE entry_id = ?", entryID)
	var have int
	if err := row.Scan(&have); err != nil {
		return err
	}
	for n := have + 1; n <= count; n++ {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO volume_progress (entry_id, volume_number) VALUES (?, ?)", entryID, n); err != nil {
			return fmt.Errorf("insert volume %d: %w", n, err)
		}
	}
	return tx.Commit()
}

// ListVolumeProgress returns an entry's volume rows ordered by number.
func (s *Store) ListVolumeProgress(ctx context.Context, entryID string) ([]VolumeProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entry_id, volume_number, consumed_at FROM volume_progress WHERE entry_id = ? ORDER BY volume_number",
		entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VolumeProgress
	for rows.Next() {
		var vp VolumeProgress
		var consumed sql.NullTime
		if err := rows.Scan(&vp.EntryID, &vp.VolumeNumber, &consumed); err != nil {
			return nil, err
		}
		if consumed.Valid {
			t := consumed.Time
			vp.ConsumedAt = &t
		}
		out = append(out, vp)
	}
	return out, rows.Err()
}

// LogJobStart writes the QUEUED ledger row for a job.
func (s *Store) LogJobStart(ctx context.Context, id, queue, payload string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO job_log (id, queue, status, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		id, queue, string(JobQueued), payload, time.Now().UTC())
	return err
}

// SettleJob writes the single terminal update for a job. Rows already in a
// terminal state are left untouched.
func (s *Store) SettleJob(ctx context.Context, id string, status JobStatus, result, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE job_log SET status = ?, result = ?, error = ?, completed_at = ? WHERE id = ? AND status = ?",
		string(status), result, errMsg, time.Now().UTC(), id, string(JobQueued))
	return err
}

// GetJob returns one ledger row by job id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, queue, status, payload, result, error, created_at, completed_at FROM job_log WHERE id = ?", id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return j, err
}

// ListJobs returns ledger rows, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, queue, status, payload, result, error, created_at, completed_at FROM job_log ORDER BY created_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var completed sql.NullTime
		if err := rows.Scan(&j.ID, &j.Queue, &j.Status, &j.Payload, &j.Result, &j.Error, &j.CreatedAt, &completed); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			j.CompletedAt = &t
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// nullableInt adapts an optional counter for binding; the driver does not
// accept pointer parameters.
func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func insertVolumeRange(ctx context.Context, tx *sql.Tx, entryID string, count int) error {
	for n := 1; n <= count; n++ {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO volume_progress (entry_id, volume_number) VALUES (?, ?)", entryID, n); err != nil {
			return fmt.Errorf("insert volume %d: %w", n, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (*Entry, error) {
	e, err := scanEntryRows(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

func scanEntryRows(row rowScanner) (*Entry, error) {
	var e Entry
	var volumes, chapters sql.NullInt64
	err := row.Scan(&e.ID, &e.Kind, &e.Title, &e.TitleNative, &e.TitleSynonyms,
		&e.ExternalID, &e.Type, &e.Status, &e.Score, &volumes, &chapters, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if volumes.Valid {
		v := int(volumes.Int64)
		e.VolumesCount = &v
	}
	if chapters.Valid {
		c := int(chapters.Int64)
		e.ChaptersCount = &c
	}
	return &e, nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var j Job
	var completed sql.NullTime
	err := row.Scan(&j.ID, &j.Queue, &j.Status, &j.Payload, &j.Result, &j.Error, &j.CreatedAt, &completed)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		j.CompletedAt = &t
	}
	return &j, nil
}
