// Package store is the graph store: a relational, multi-reader/
// single-writer persistence layer for Files, Symbols, and import Edges,
// backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/guvensoft/codectx-mcp/pkg/types"
)

// ErrNotFound is returned by point lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// Store is the read/query surface of the graph store, plus the ability to
// open a rebuild transaction. A Store is safe for concurrent readers; only
// one writer (RebuildTx) may be open at a time, enforced by an exclusive
// transaction at the database level.
type Store interface {
	ListSymbols(ctx context.Context, file string) ([]types.Symbol, error)
	ListImports(ctx context.Context, file string) ([]string, error)
	ListDependents(ctx context.Context, file string) ([]string, error)
	FindRefs(ctx context.Context, symbolName string) ([]string, error)
	Degree(ctx context.Context, file string) (int, error)
	ListFiles(ctx context.Context) ([]string, error)
	CountFiles(ctx context.Context) (int, error)
	CountSymbols(ctx context.Context) (int, error)
	CountEdges(ctx context.Context) (int, error)

	BeginRebuild(ctx context.Context) (RebuildTx, error)
	Close() error
}

// RebuildTx performs one atomic indexing-pass write: clear, then insert.
// Readers using the Store interface observe the pre-rebuild snapshot
// until Commit returns.
type RebuildTx interface {
	// Clear deletes edges, then symbols, then files, in that order.
	Clear(ctx context.Context) error
	// UpsertFile inserts a file and returns its internal row id.
	UpsertFile(ctx context.Context, path string) (int64, error)
	// InsertSymbols bulk-inserts symbols belonging to fileID.
	InsertSymbols(ctx context.Context, fileID int64, symbols []types.Symbol) error
	// InsertEdges bulk-inserts deduplicated, non-self-loop edges. Both
	// endpoints must already exist via UpsertFile in this transaction (I1).
	InsertEdges(ctx context.Context, edges []types.Edge) error
	Commit() error
	Rollback() error
}

type sqlStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the graph store at dbPath and applies
// the schema migration.
func Open(dbPath string) (Store, error) {
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single-writer; keep it simple and serialized.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) ListSymbols(ctx context.Context, file string) ([]types.Symbol, error) {
	var rows *sql.Rows
	var err error
	if file == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT f.path, s.name, s.kind, s.start_line, s.end_line
			FROM symbols s JOIN files f ON f.id = s.file_id
			ORDER BY f.path, s.start_line`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT f.path, s.name, s.kind, s.start_line, s.end_line
			FROM symbols s JOIN files f ON f.id = s.file_id
			WHERE f.path = ?
			ORDER BY f.path, s.start_line`, file)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []types.Symbol
	for rows.Next() {
		var sym types.Symbol
		if err := rows.Scan(&sym.File, &sym.Name, &sym.Kind, &sym.StartLine, &sym.EndLine); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *sqlStore) ListImports(ctx context.Context, file string) ([]string, error) {
	return s.edgeTargets(ctx, `
		SELECT tf.path FROM edges e
		JOIN files ff ON ff.id = e.from_file
		JOIN files tf ON tf.id = e.to_file
		WHERE ff.path = ? ORDER BY tf.path`, file)
}

func (s *sqlStore) ListDependents(ctx context.Context, file string) ([]string, error) {
	return s.edgeTargets(ctx, `
		SELECT ff.path FROM edges e
		JOIN files ff ON ff.id = e.from_file
		JOIN files tf ON tf.id = e.to_file
		WHERE tf.path = ? ORDER BY ff.path`, file)
}

func (s *sqlStore) edgeTargets(ctx context.Context, query, file string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindRefs returns files that import any file containing a symbol whose
// name matches %name% (substring, case-sensitive), deduplicated.
func (s *sqlStore) FindRefs(ctx context.Context, symbolName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ff.path
		FROM symbols s
		JOIN files tf ON tf.id = s.file_id
		JOIN edges e ON e.to_file = tf.id
		JOIN files ff ON ff.id = e.from_file
		WHERE s.name LIKE '%' || ? || '%'
		ORDER BY ff.path`, symbolName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) Degree(ctx context.Context, file string) (int, error) {
	var out, in int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges e JOIN files f ON f.id = e.from_file WHERE f.path = ?`, file).Scan(&out)
	if err != nil {
		return 0, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges e JOIN files f ON f.id = e.to_file WHERE f.path = ?`, file).Scan(&in)
	if err != nil {
		return 0, err
	}
	return out + in, nil
}

func (s *sqlStore) ListFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) count(ctx context.Context, table string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n) //nolint:gosec // table is a fixed literal
	return n, err
}

func (s *sqlStore) CountFiles(ctx context.Context) (int, error)   { return s.count(ctx, "files") }
func (s *sqlStore) CountSymbols(ctx context.Context) (int, error) { return s.count(ctx, "symbols") }
func (s *sqlStore) CountEdges(ctx context.Context) (int, error)   { return s.count(ctx, "edges") }

func (s *sqlStore) BeginRebuild(ctx context.Context) (RebuildTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &rebuildTx{tx: tx, fileIDs: make(map[string]int64)}, nil
}

type rebuildTx struct {
	tx      *sql.Tx
	fileIDs map[string]int64
}

func (r *rebuildTx) Clear(ctx context.Context) error {
	for _, table := range []string{"edges", "symbols", "files"} {
		if _, err := r.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil { //nolint:gosec
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (r *rebuildTx) UpsertFile(ctx context.Context, path string) (int64, error) {
	if id, ok := r.fileIDs[path]; ok {
		return id, nil
	}
	res, err := r.tx.ExecContext(ctx, `INSERT INTO files(path) VALUES (?)`, path)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.fileIDs[path] = id
	return id, nil
}

func (r *rebuildTx) InsertSymbols(ctx context.Context, fileID int64, symbols []types.Symbol) error {
	stmt, err := r.tx.PrepareContext(ctx, `
		INSERT INTO symbols(file_id, name, kind, start_line, end_line) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, fileID, sym.Name, string(sym.Kind), sym.StartLine, sym.EndLine); err != nil {
			return err
		}
	}
	return nil
}

func (r *rebuildTx) InsertEdges(ctx context.Context, edges []types.Edge) error {
	dedup := dedupeEdges(edges)
	stmt, err := r.tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO edges(from_file, to_file, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range dedup {
		if e.From == e.To {
			continue
		}
		fromID, ok := r.fileIDs[e.From]
		if !ok {
			continue // I1: both endpoints must already be indexed Files.
		}
		toID, ok := r.fileIDs[e.To]
		if !ok {
			continue
		}
		kind := string(e.Kind)
		if kind == "" {
			kind = string(types.EdgeKindImport)
		}
		if _, err := stmt.ExecContext(ctx, fromID, toID, kind); err != nil {
			return err
		}
	}
	return nil
}

func (r *rebuildTx) Commit() error   { return r.tx.Commit() }
func (r *rebuildTx) Rollback() error { return r.tx.Rollback() }

// dedupeEdges removes duplicate (from,to,kind) tuples (I3), preserving
// deterministic order.
func dedupeEdges(edges []types.Edge) []types.Edge {
	seen := make(map[types.Edge]struct{}, len(edges))
	out := make([]types.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Kind == "" {
			e.Kind = types.EdgeKindImport
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
