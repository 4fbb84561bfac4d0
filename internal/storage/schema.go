package storage

// schema creates both relations and their indexes. Mirrors the teacher's
// layout: one CREATE TABLE IF NOT EXISTS block per relation, indexes
// immediately following.
const schema = `
CREATE TABLE IF NOT EXISTS notams (
	notam_id          TEXT PRIMARY KEY,
	series            TEXT,
	number            INTEGER,
	year              INTEGER,
	kind              TEXT NOT NULL,
	replaces_id       TEXT,
	cancels_id        TEXT,
	fir               TEXT,
	q_code            TEXT,
	q_subject         TEXT,
	q_condition       TEXT,
	traffic           TEXT,
	purpose           TEXT,
	scope             TEXT,
	lower_limit       INTEGER,
	upper_limit       INTEGER,
	coordinates       TEXT,
	latitude          REAL,
	longitude         REAL,
	radius_nm         INTEGER,
	location          TEXT,
	valid_from        DATETIME,
	valid_to          DATETIME,
	is_permanent      INTEGER NOT NULL DEFAULT 0,
	schedule          TEXT,
	body              TEXT,
	lower_limit_text  TEXT,
	upper_limit_text  TEXT,
	airport_code      TEXT,
	airport_name      TEXT,
	issue_date        DATETIME,
	source            TEXT,
	source_type       TEXT,
	transaction_id    TEXT,
	has_history       INTEGER NOT NULL DEFAULT 0,
	raw_icao_message  TEXT,
	search_term       TEXT,
	is_closure        INTEGER NOT NULL DEFAULT 0,
	is_drone_related  INTEGER NOT NULL DEFAULT 0,
	is_restriction    INTEGER NOT NULL DEFAULT 0,
	is_trigger        INTEGER NOT NULL DEFAULT 0,
	priority_score    INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notams_airport_code ON notams(airport_code);
CREATE INDEX IF NOT EXISTS idx_notams_validity ON notams(valid_from, valid_to);
CREATE INDEX IF NOT EXISTS idx_notams_is_closure ON notams(is_closure);
CREATE INDEX IF NOT EXISTS idx_notams_is_drone_related ON notams(is_drone_related);
CREATE INDEX IF NOT EXISTS idx_notams_priority_score ON notams(priority_score DESC);
CREATE INDEX IF NOT EXISTS idx_notams_search_term ON notams(search_term);
CREATE INDEX IF NOT EXISTS idx_notams_kind ON notams(kind);

CREATE TABLE IF NOT EXISTS search_runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mode           TEXT NOT NULL,
	search_term    TEXT,
	airport_codes  TEXT,
	total_fetched  INTEGER NOT NULL DEFAULT 0,
	new_inserted   INTEGER NOT NULL DEFAULT 0,
	updated        INTEGER NOT NULL DEFAULT 0,
	run_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_search_runs_run_at ON search_runs(run_at);
`
