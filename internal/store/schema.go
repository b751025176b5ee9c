package store

import "database/sql"

// schemaDDL defines three tables: files(id, path UNIQUE), symbols(id,
// file_id, name, kind, start_line, end_line), and edges(from_file,
// to_file, kind, UNIQUE(from_file, to_file, kind)).
const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS symbols (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id, start_line);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS edges (
	from_file INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	to_file   INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	kind      TEXT NOT NULL DEFAULT 'import',
	UNIQUE(from_file, to_file, kind)
);

CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_file);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_file);
`

func applySchema(db *sql.DB) error {
	_, err := db.Exec(schemaDDL)
	return err
}
