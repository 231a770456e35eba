package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS statuses (
	id                INTEGER PRIMARY KEY,
	name              TEXT NOT NULL UNIQUE,
	position          INTEGER NOT NULL DEFAULT 0,
	order_by_position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS lists (
	id       INTEGER PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE,
	position INTEGER NOT NULL DEFAULT 0,
	active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS list_statuses (
	id        INTEGER PRIMARY KEY,
	list_id   INTEGER NOT NULL REFERENCES lists(id),
	status_id INTEGER NOT NULL REFERENCES statuses(id),
	position  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (list_id, status_id)
);

CREATE TABLE IF NOT EXISTS entries (
	id        INTEGER PRIMARY KEY,
	name      TEXT NOT NULL,
	position  INTEGER,
	date      TEXT,
	status_id INTEGER NOT NULL REFERENCES statuses(id),
	list_id   INTEGER NOT NULL REFERENCES lists(id)
);

CREATE INDEX IF NOT EXISTS idx_entries_partition_position
	ON entries(list_id, status_id, position);
CREATE INDEX IF NOT EXISTS idx_entries_partition_date
	ON entries(list_id, status_id, date);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_dated_unique
	ON entries(list_id, status_id, name, date) WHERE position IS NULL;
CREATE INDEX IF NOT EXISTS idx_list_statuses_list
	ON list_statuses(list_id, position);

INSERT OR IGNORE INTO statuses (id, name, position, order_by_position) VALUES
	(1, 'Planned', 1, 1),
	(2, 'Done', 2, 0),
	(3, 'Dropped', 3, 0);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
