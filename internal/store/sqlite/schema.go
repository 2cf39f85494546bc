package sqlite

// graphSchema holds the tables written by external collectors
const graphSchema = `
CREATE TABLE IF NOT EXISTS claim_nodes (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_text      TEXT NOT NULL,
	claim_type      TEXT NOT NULL DEFAULT 'assertion',
	first_source    INTEGER,
	confidence      REAL NOT NULL DEFAULT 0.5,
	verification    TEXT NOT NULL DEFAULT 'unverified',
	mutation_parent INTEGER,
	mutation_diff   TEXT,
	tags            TEXT,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS source_nodes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type  TEXT NOT NULL DEFAULT 'document',
	source_title TEXT NOT NULL DEFAULT '',
	source_url   TEXT,
	document_cid TEXT,
	author       TEXT,
	published_at TEXT,
	credibility  REAL NOT NULL DEFAULT 0.0,
	platform     TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence_links (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	from_type    TEXT NOT NULL,
	from_id      INTEGER NOT NULL,
	to_type      TEXT NOT NULL,
	to_id        INTEGER NOT NULL,
	relationship TEXT NOT NULL,
	weight       REAL NOT NULL DEFAULT 1.0,
	created_at   TEXT
);

CREATE INDEX IF NOT EXISTS idx_links_from ON evidence_links(from_type, from_id);
CREATE INDEX IF NOT EXISTS idx_links_to ON evidence_links(to_type, to_id);
CREATE INDEX IF NOT EXISTS idx_claims_parent ON claim_nodes(mutation_parent);
`

// analyticsSchema holds the append-only tables the engines write
const analyticsSchema = `
CREATE TABLE IF NOT EXISTS source_reputation (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id        INTEGER NOT NULL,
	support_count    INTEGER NOT NULL,
	contradict_count INTEGER NOT NULL,
	total_claims     INTEGER NOT NULL,
	accuracy_rate    REAL NOT NULL,
	reliability      REAL NOT NULL,
	ema_credibility  REAL NOT NULL,
	trend            TEXT NOT NULL,
	computed_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS influence_edges (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT,
	from_source_id INTEGER NOT NULL,
	to_source_id   INTEGER NOT NULL,
	shared_claims  INTEGER NOT NULL,
	amplification  REAL NOT NULL,
	relationship   TEXT NOT NULL DEFAULT 'amplifies',
	first_seen     TEXT,
	last_seen      TEXT,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS coordination_events (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT,
	cluster_id         TEXT NOT NULL,
	claim_id           INTEGER NOT NULL,
	source_ids_json    TEXT NOT NULL,
	source_count       INTEGER NOT NULL,
	window_hours       REAL NOT NULL,
	temporal_density   REAL NOT NULL DEFAULT 0,
	coordination_score REAL NOT NULL,
	pattern_type       TEXT NOT NULL,
	detected_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS provenance_traces (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id         INTEGER NOT NULL,
	root_claim_id    INTEGER NOT NULL,
	origin_source_id INTEGER,
	origin_source    TEXT,
	origin_type      TEXT NOT NULL,
	chain_depth      INTEGER NOT NULL,
	mutation_depth   INTEGER NOT NULL,
	source_depth     INTEGER NOT NULL,
	path_json        TEXT NOT NULL,
	confidence       REAL NOT NULL,
	traced_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reputation_source ON source_reputation(source_id, computed_at);
CREATE INDEX IF NOT EXISTS idx_edges_from ON influence_edges(from_source_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON influence_edges(to_source_id);
CREATE INDEX IF NOT EXISTS idx_events_score ON coordination_events(coordination_score);
CREATE INDEX IF NOT EXISTS idx_traces_claim ON provenance_traces(claim_id, traced_at);
`
