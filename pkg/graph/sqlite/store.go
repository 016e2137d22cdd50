// Package sqlite implements graph.Store on a SQLite database. It follows
// the same operational profile as the in-memory store: per-node atomic
// writes, no cross-node transactions, dangling child references allowed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

// Store implements graph.Store using SQLite.
type Store struct {
	dbPath string
	db     *sqlx.DB
}

var _ graph.Store = (*Store)(nil)

// NewStore opens (creating if necessary) the database at dbPath, applies
// pragmas for WAL-mode operation, and runs pending migrations.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if err := configureDatabase(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure database")
	}

	store := &Store{dbPath: dbPath, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return store, nil
}

// configureDatabase sets SQLite pragmas for WAL-mode operation. A single
// connection serialises writers; readers go through WAL snapshots so they
// never observe a torn row.
func configureDatabase(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=1000",
		"PRAGMA temp_store=memory",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return errors.Wrap(err, "failed to query journal mode")
	}
	if strings.ToLower(journalMode) != "wal" {
		return errors.Errorf("WAL mode not enabled, current mode: %s", journalMode)
	}
	return nil
}

// Upsert writes the node inside a transaction. The acyclicity probe runs
// in the same transaction, so the check-and-write is atomic with respect
// to other writers.
func (s *Store) Upsert(ctx context.Context, node *graph.Node) error {
	if node == nil {
		return errors.New("nil node")
	}
	if err := node.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	lookup := func(ctx context.Context, id string) ([]string, bool, error) {
		var raw string
		err := tx.GetContext(ctx, &raw, `SELECT children FROM skill_nodes WHERE id = ?`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, errors.Wrapf(err, "failed to read children of %s", id)
		}
		var children []string
		if err := json.Unmarshal([]byte(raw), &children); err != nil {
			return nil, false, errors.Wrapf(err, "failed to unmarshal children of %s", id)
		}
		return children, true, nil
	}
	cyclic, err := graph.WouldCycle(ctx, lookup, node.ID, node.Children)
	if err != nil {
		return err
	}
	if cyclic {
		return errors.Wrapf(graph.ErrStructuralViolation, "upserting %s would create a cycle", node.ID)
	}

	record, err := recordFromNode(node)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO skill_nodes (id, summary, vector, is_folder, children, payload, created_at, updated_at)
		VALUES (:id, :summary, :vector, :is_folder, :children, :payload, :created_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			vector = excluded.vector,
			is_folder = excluded.is_folder,
			children = excluded.children,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		record)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert node %s", node.ID)
	}

	return errors.Wrap(tx.Commit(), "failed to commit upsert")
}

// Get returns the node keyed by id.
func (s *Store) Get(ctx context.Context, id string) (*graph.Node, error) {
	var record nodeRecord
	err := s.db.GetContext(ctx, &record, `SELECT * FROM skill_nodes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(graph.ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load node %s", id)
	}
	return record.toNode()
}

// Delete removes the node, leaving any references from other nodes'
// children in place.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM skill_nodes WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete node %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(graph.ErrNotFound, "id %s", id)
	}
	return nil
}

// ListAll returns every node's projection in ascending id order.
func (s *Store) ListAll(ctx context.Context) ([]graph.Summary, error) {
	var rows []struct {
		ID       string `db:"id"`
		Summary  string `db:"summary"`
		IsFolder bool   `db:"is_folder"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT id, summary, is_folder FROM skill_nodes ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list nodes")
	}
	out := make([]graph.Summary, len(rows))
	for i, r := range rows {
		out[i] = graph.Summary{ID: r.ID, Summary: r.Summary, IsFolder: r.IsFolder}
	}
	return out, nil
}

// Len reports the number of stored nodes.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM skill_nodes`); err != nil {
		return 0, errors.Wrap(err, "failed to count nodes")
	}
	return n, nil
}

// DB exposes the underlying handle so sibling subsystems sharing the
// database file (api_keys) can reuse the connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "failed to close database")
}
