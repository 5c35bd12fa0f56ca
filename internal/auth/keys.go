// Package auth stores the hashed API keys that guard the HTTP API.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// Scopes a key can hold. ScopeAll grants every other scope.
const (
	ScopeAll         = "*"
	ScopeModelRead   = "model:read"
	ScopeModelWrite  = "model:write"
	ScopeCorpusRead  = "corpus:read"
	ScopeCorpusWrite = "corpus:write"
	ScopeManage      = "auth:manage"
)

// KeyPrefix starts every raw key.
const KeyPrefix = "cmk_"

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
    id          INTEGER PRIMARY KEY,
    key_hash    TEXT    NOT NULL UNIQUE,
    scopes      TEXT    NOT NULL,
    description TEXT    NOT NULL
);
`

var (
	// ErrUnknownKey means no stored key matches.
	ErrUnknownKey = errors.New("auth: unknown key")
	// ErrPrimaryKey is returned when deleting the first key, which always
	// holds ScopeAll.
	ErrPrimaryKey = errors.New("auth: the primary key cannot be deleted")
	// ErrUnknownScope is returned when creating a key with a scope that does
	// not exist.
	ErrUnknownScope = errors.New("auth: unknown scope")
)

var knownScopes = []string{ScopeAll, ScopeModelRead, ScopeModelWrite, ScopeCorpusRead, ScopeCorpusWrite, ScopeManage}

// Key describes a stored key. The raw key is never stored.
type Key struct {
	ID          int      `json:"id"`
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// Permissions is the scope set of an authenticated request.
type Permissions map[string]struct{}

// Has reports whether p grants scope.
func (p Permissions) Has(scope string) bool {
	if _, ok := p[ScopeAll]; ok {
		return true
	}
	_, ok := p[scope]
	return ok
}

// Master holds every scope. It applies while no key exists.
var Master = Permissions{ScopeAll: {}}

// KeyStore manages API keys in SQLite.
type KeyStore struct {
	db     *sql.DB
	logger *slog.Logger

	stmtCount  *sql.Stmt
	stmtLookup *sql.Stmt
	stmtList   *sql.Stmt
	stmtInsert *sql.Stmt
	stmtDelete *sql.Stmt
}

// NewKeyStore creates the api_keys table if needed and prepares its statements.
func NewKeyStore(db *sql.DB) (*KeyStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create api_keys table: %w", err)
	}
	ks := &KeyStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&ks.stmtCount, "SELECT COUNT(*) FROM api_keys"},
		{&ks.stmtLookup, "SELECT scopes FROM api_keys WHERE key_hash = ?"},
		{&ks.stmtList, "SELECT id, description, scopes FROM api_keys ORDER BY id"},
		{&ks.stmtInsert, "INSERT INTO api_keys (key_hash, description, scopes) VALUES (?, ?, ?) RETURNING id"},
		{&ks.stmtDelete, "DELETE FROM api_keys WHERE id = ?"},
	}
	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			ks.Close()
			return nil, fmt.Errorf("could not prepare statement %q: %w", st.query, err)
		}
		*st.dst = stmt
	}
	return ks, nil
}

// Close releases the prepared statements.
func (ks *KeyStore) Close() {
	for _, stmt := range []*sql.Stmt{ks.stmtCount, ks.stmtLookup, ks.stmtList, ks.stmtInsert, ks.stmtDelete} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger. By default, all logs are discarded.
func (ks *KeyStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		ks.logger = logger
	}
}

// Count returns the number of stored keys.
func (ks *KeyStore) Count(ctx context.Context) (int, error) {
	var n int
	err := ks.stmtCount.QueryRowContext(ctx).Scan(&n)
	return n, err
}

// Authenticate returns the permissions of rawKey. While no key is stored
// every caller gets Master.
func (ks *KeyStore) Authenticate(ctx context.Context, rawKey string) (Permissions, error) {
	n, err := ks.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return Master, nil
	}
	if rawKey == "" {
		return nil, ErrUnknownKey
	}

	var scopes string
	err = ks.stmtLookup.QueryRowContext(ctx, hashKey(rawKey)).Scan(&scopes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownKey
	}
	if err != nil {
		return nil, err
	}
	perms := make(Permissions)
	for _, s := range strings.Fields(scopes) {
		perms[s] = struct{}{}
	}
	return perms, nil
}

// Create stores a new key and returns it with its raw value. The first key
// always gets ScopeAll so the API cannot be locked.
func (ks *KeyStore) Create(ctx context.Context, scopes []string, description string) (Key, string, error) {
	for _, s := range scopes {
		if !slices.Contains(knownScopes, s) {
			return Key{}, "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
		}
	}
	n, err := ks.Count(ctx)
	if err != nil {
		return Key{}, "", err
	}
	if n == 0 {
		scopes = []string{ScopeAll}
	}

	rawKey, err := generateKey()
	if err != nil {
		return Key{}, "", err
	}
	key := Key{Scopes: scopes, Description: description}
	if err = ks.stmtInsert.QueryRowContext(ctx, hashKey(rawKey), description, strings.Join(scopes, " ")).Scan(&key.ID); err != nil {
		return Key{}, "", fmt.Errorf("failed to save key: %w", err)
	}
	ks.logger.InfoContext(ctx, "API key created", "id", key.ID, "scopes", key.Scopes)
	return key, rawKey, nil
}

// List returns every stored key in creation order.
func (ks *KeyStore) List(ctx context.Context) ([]Key, error) {
	rows, err := ks.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	keys := []Key{}
	for rows.Next() {
		var key Key
		var scopes string
		if err = rows.Scan(&key.ID, &key.Description, &scopes); err != nil {
			return nil, err
		}
		key.Scopes = strings.Fields(scopes)
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Delete removes the key with id. The key with ID 1 cannot be deleted.
func (ks *KeyStore) Delete(ctx context.Context, id int) error {
	if id == 1 {
		return ErrPrimaryKey
	}
	res, err := ks.stmtDelete.ExecContext(ctx, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUnknownKey
	}
	ks.logger.InfoContext(ctx, "API key deleted", "id", id)
	return nil
}

func generateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
