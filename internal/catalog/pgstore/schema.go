package pgstore

const schema = `
CREATE TABLE IF NOT EXISTS pirex_library (
	id           SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	next_ordinal INTEGER NOT NULL,
	saved_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pirex_opi (
	ordinal   INTEGER PRIMARY KEY,
	author    TEXT NOT NULL,
	title     TEXT NOT NULL,
	file_path TEXT NOT NULL DEFAULT '',
	added_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pirex_documents (
	id           TEXT PRIMARY KEY,
	opus_ordinal INTEGER NOT NULL REFERENCES pirex_opi (ordinal) ON DELETE CASCADE,
	ordinal      INTEGER NOT NULL,
	body         TEXT NOT NULL,
	UNIQUE (opus_ordinal, ordinal)
);
`
