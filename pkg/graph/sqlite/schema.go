package sqlite

// SQL schema definitions for the skill graph database.

const createSchemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const createNodesTable = `
CREATE TABLE IF NOT EXISTS skill_nodes (
	id TEXT PRIMARY KEY,
	summary TEXT NOT NULL DEFAULT '',
	vector BLOB,
	is_folder INTEGER NOT NULL DEFAULT 0,
	children TEXT NOT NULL DEFAULT '[]',
	payload TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const createAPIKeysTable = `
CREATE TABLE IF NOT EXISTS api_keys (
	key_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	key_hash TEXT NOT NULL UNIQUE,
	prefix TEXT NOT NULL,
	grants TEXT NOT NULL DEFAULT '[]',
	revoked INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
)`

const (
	createIndexNodesIsFolder  = `CREATE INDEX IF NOT EXISTS idx_skill_nodes_is_folder ON skill_nodes(is_folder)`
	createIndexNodesUpdatedAt = `CREATE INDEX IF NOT EXISTS idx_skill_nodes_updated_at ON skill_nodes(updated_at)`
	createIndexAPIKeysHash    = `CREATE INDEX IF NOT EXISTS idx_api_keys_key_hash ON api_keys(key_hash)`
)
