package data

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id             VARCHAR PRIMARY KEY,
	kind           VARCHAR NOT NULL,
	title          VARCHAR NOT NULL,
	title_native   VARCHAR NOT NULL DEFAULT '',
	title_synonyms VARCHAR NOT NULL DEFAULT '',
	external_id    BIGINT NOT NULL,
	type           VARCHAR NOT NULL DEFAULT '',
	status         VARCHAR NOT NULL DEFAULT '',
	score          DOUBLE NOT NULL DEFAULT 0,
	volumes_count  INTEGER,
	chapters_count INTEGER,
	created_at     TIMESTAMP NOT NULL DEFAULT now(),
	UNIQUE (kind, external_id)
);

CREATE TABLE IF NOT EXISTS entities (
	id       VARCHAR PRIMARY KEY,
	kind     VARCHAR NOT NULL,
	name     VARCHAR NOT NULL,
	name_key VARCHAR NOT NULL,
	UNIQUE (kind, name_key)
);

CREATE TABLE IF NOT EXISTS entry_entities (
	entry_id  VARCHAR NOT NULL,
	entity_id VARCHAR NOT NULL,
	UNIQUE (entry_id, entity_id)
);

CREATE TABLE IF NOT EXISTS reviews (
	entry_id        VARCHAR PRIMARY KEY,
	review          VARCHAR,
	progress_status VARCHAR,
	personal_score  DOUBLE,
	consumed_at     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS episodes (
	entry_id     VARCHAR NOT NULL,
	number       INTEGER NOT NULL,
	title        VARCHAR NOT NULL DEFAULT '',
	title_native VARCHAR NOT NULL DEFAULT '',
	title_romaji VARCHAR NOT NULL DEFAULT '',
	aired        VARCHAR NOT NULL DEFAULT '',
	UNIQUE (entry_id, number)
);

CREATE TABLE IF NOT EXISTS volume_progress (
	entry_id      VARCHAR NOT NULL,
	volume_number INTEGER NOT NULL,
	consumed_at   TIMESTAMP,
	UNIQUE (entry_id, volume_number)
);

CREATE TABLE IF NOT EXISTS job_log (
	id           VARCHAR PRIMARY KEY,
	queue        VARCHAR NOT NULL,
	status       VARCHAR NOT NULL,
	payload      VARCHAR NOT NULL DEFAULT '',
	result       VARCHAR NOT NULL DEFAULT '',
	error        VARCHAR NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL DEFAULT now(),
	completed_at TIMESTAMP
);
`

// Open opens (or creates) the catalog database and ensures the schema exists.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
