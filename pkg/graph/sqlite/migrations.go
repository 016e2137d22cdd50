package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
)

// Migration represents a single schema migration.
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
}

// migrations contains all schema migrations in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial skill graph schema",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(createSchemaVersionTable); err != nil {
				return errors.Wrap(err, "failed to create schema_version table")
			}
			if _, err := tx.Exec(createNodesTable); err != nil {
				return errors.Wrap(err, "failed to create skill_nodes table")
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Node indexes",
		Up: func(tx *sql.Tx) error {
			for _, index := range []string{createIndexNodesIsFolder, createIndexNodesUpdatedAt} {
				if _, err := tx.Exec(index); err != nil {
					return errors.Wrap(err, "failed to create index")
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "API key storage",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(createAPIKeysTable); err != nil {
				return errors.Wrap(err, "failed to create api_keys table")
			}
			if _, err := tx.Exec(createIndexAPIKeysHash); err != nil {
				return errors.Wrap(err, "failed to create api_keys index")
			}
			return nil
		},
	},
}

// migrate applies all pending migrations inside transactions.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(createSchemaVersionTable); err != nil {
		return errors.Wrap(err, "failed to ensure schema_version table")
	}

	var current sql.NullInt64
	if err := s.db.Get(&current, `SELECT MAX(version) FROM schema_version`); err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}

	for _, m := range migrations {
		if current.Valid && int64(m.Version) <= current.Int64 {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return errors.Wrapf(err, "failed to begin migration %d", m.Version)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d (%s) failed", m.Version, m.Description)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version, description) VALUES (?, ?)`, m.Version, m.Description); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to record migration %d", m.Version)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "failed to commit migration %d", m.Version)
		}
	}
	return nil
}
