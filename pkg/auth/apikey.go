// Package auth issues and resolves credentials for the skill graph: API
// keys persisted alongside the nodes, and short-lived JWTs carrying
// skill scopes. Both resolve to a graph.Principal; the access evaluator
// does the rest.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

const keyPrefix = "sm_"

// WildcardGrant in a key's grant list marks an administrative key that
// passes every access check.
const WildcardGrant = "*"

// APIKey is the stored metadata of a key. The plaintext is shown once
// at creation and never stored.
type APIKey struct {
	KeyID     string    `db:"key_id" json:"key_id"`
	Name      string    `db:"name" json:"name"`
	Prefix    string    `db:"prefix" json:"prefix"`
	Grants    []string  `db:"-" json:"grants"`
	Revoked   bool      `db:"revoked" json:"revoked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type apiKeyRecord struct {
	KeyID     string    `db:"key_id"`
	Name      string    `db:"name"`
	KeyHash   string    `db:"key_hash"`
	Prefix    string    `db:"prefix"`
	Grants    string    `db:"grants"`
	Revoked   bool      `db:"revoked"`
	CreatedAt time.Time `db:"created_at"`
}

// APIKeyStore manages keys in the api_keys table. It shares the
// database handle with the sqlite node store.
type APIKeyStore struct {
	db *sqlx.DB
}

// NewAPIKeyStore wraps an existing database handle.
func NewAPIKeyStore(db *sqlx.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create mints a new key granting access to the given root ids. The
// returned plaintext is the only copy; callers must show it immediately.
func (s *APIKeyStore) Create(ctx context.Context, name string, grants []string) (*APIKey, string, error) {
	if name == "" {
		return nil, "", errors.New("key name cannot be empty")
	}

	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, "", errors.Wrap(err, "failed to generate key material")
	}
	plaintext := keyPrefix + hex.EncodeToString(secret)

	grantsJSON, err := json.Marshal(normalizeGrants(grants))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to encode grants")
	}

	record := apiKeyRecord{
		KeyID:     uuid.NewString(),
		Name:      name,
		KeyHash:   hashKey(plaintext),
		Prefix:    plaintext[:len(keyPrefix)+6],
		Grants:    string(grantsJSON),
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO api_keys (key_id, name, key_hash, prefix, grants, revoked, created_at)
		VALUES (:key_id, :name, :key_hash, :prefix, :grants, :revoked, :created_at)`, record)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to store api key")
	}

	key, err := record.toAPIKey()
	if err != nil {
		return nil, "", err
	}
	return key, plaintext, nil
}

// Resolve authenticates a plaintext key and returns the principal it
// grants. Unknown and revoked keys both come back as ErrAccessDenied so
// a probing caller cannot tell them apart.
func (s *APIKeyStore) Resolve(ctx context.Context, plaintext string) (graph.Principal, error) {
	var record apiKeyRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT key_id, name, key_hash, prefix, grants, revoked, created_at
		 FROM api_keys WHERE key_hash = ?`, hashKey(plaintext))
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Principal{}, errors.Wrap(graph.ErrAccessDenied, "unknown api key")
	}
	if err != nil {
		return graph.Principal{}, errors.Wrap(err, "failed to look up api key")
	}
	if record.Revoked {
		return graph.Principal{}, errors.Wrap(graph.ErrAccessDenied, "api key revoked")
	}

	key, err := record.toAPIKey()
	if err != nil {
		return graph.Principal{}, err
	}
	return principalFromGrants(key.Name, key.Grants), nil
}

// List returns all keys, including revoked ones, newest first.
func (s *APIKeyStore) List(ctx context.Context) ([]APIKey, error) {
	var records []apiKeyRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT key_id, name, key_hash, prefix, grants, revoked, created_at
		 FROM api_keys ORDER BY created_at DESC, key_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list api keys")
	}

	keys := make([]APIKey, 0, len(records))
	for _, record := range records {
		key, err := record.toAPIKey()
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	return keys, nil
}

// Revoke disables a key by id. Revocation is immediate and permanent.
func (s *APIKeyStore) Revoke(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked = 1 WHERE key_id = ?`, keyID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke api key")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check revocation")
	}
	if affected == 0 {
		return errors.Wrapf(graph.ErrNotFound, "api key %s", keyID)
	}
	return nil
}

func (r apiKeyRecord) toAPIKey() (*APIKey, error) {
	var grants []string
	if err := json.Unmarshal([]byte(r.Grants), &grants); err != nil {
		return nil, errors.Wrapf(err, "corrupt grants for key %s", r.KeyID)
	}
	return &APIKey{
		KeyID:     r.KeyID,
		Name:      r.Name,
		Prefix:    r.Prefix,
		Grants:    grants,
		Revoked:   r.Revoked,
		CreatedAt: r.CreatedAt,
	}, nil
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func normalizeGrants(grants []string) []string {
	out := make([]string, 0, len(grants))
	seen := make(map[string]struct{}, len(grants))
	for _, grant := range grants {
		grant = strings.TrimSpace(grant)
		if grant == "" {
			continue
		}
		if _, dup := seen[grant]; dup {
			continue
		}
		seen[grant] = struct{}{}
		out = append(out, grant)
	}
	return out
}

func principalFromGrants(name string, grants []string) graph.Principal {
	principal := graph.Principal{Name: name}
	for _, grant := range grants {
		if grant == WildcardGrant {
			principal.Wildcard = true
			continue
		}
		principal.GrantedRootIDs = append(principal.GrantedRootIDs, grant)
	}
	return principal
}
