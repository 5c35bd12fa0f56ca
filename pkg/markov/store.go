package markov

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

const (
	// StartTokenID is the reserved ID for the start-of-sequence token.
	StartTokenID = 0
	// EndTokenID is the reserved ID for the end-of-sequence token.
	EndTokenID = 1
	// StartTokenText is the reserved text for the start-of-sequence token.
	StartTokenText = "<<START>>"
	// EndTokenText is the reserved text for the end-of-sequence token.
	EndTokenText = "<<END>>"
)

// SetupSchema initializes the necessary tables and special vocabulary entries
// in the provided database. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
	prefix_id INTEGER PRIMARY KEY,
	prefix_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);
`
		schemaSequences = `
CREATE TABLE IF NOT EXISTS markov_sequences (
    seq_id INTEGER PRIMARY KEY,
    model_id INTEGER NOT NULL,
    seq_length INTEGER NOT NULL,
    token_ids TEXT NOT NULL
);
`
		schemaSequencesIndex = `
CREATE INDEX IF NOT EXISTS markov_sequences_length ON markov_sequences (model_id, seq_length);
`
	)

	startToken := fmt.Sprintf("INSERT OR IGNORE INTO markov_vocabulary (token_id, token_text) VALUES (%d, '%s');", StartTokenID, StartTokenText)
	endToken := fmt.Sprintf("INSERT OR IGNORE INTO markov_vocabulary (token_id, token_text) VALUES (%d, '%s');", EndTokenID, EndTokenText)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaVocab, schemaPrefixes, schemaModels, schemaChains, schemaSequences, schemaSequencesIndex} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if _, err = tx.Exec(startToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}
	if _, err = tx.Exec(endToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store holds the database connection, a tokenizer, and prepared SQL
// statements for every corpus operation.
type Store struct {
	db                    *sql.DB
	tokenizer             Tokenizer
	stmtGetModelInfo      *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtModelChains       *sql.Stmt
	stmtModelStarters     *sql.Stmt
	stmtModelFreq         *sql.Stmt
	stmtModelSequences    *sql.Stmt
	stmtInsertLink        *sql.Stmt
	stmtGetTokenID        *sql.Stmt
	stmtGetPrefixID       *sql.Stmt
	stmtGetTokenText      *sql.Stmt
	stmtGetChain          *sql.Stmt
	stmtGetVocabLen       *sql.Stmt
	stmtGetPrefixLen      *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	stmtGetSequences      *sql.Stmt
	stmtGetLengths        *sql.Stmt
	logger                *slog.Logger
}

// NewStore creates a Store over db, which must already carry the schema, and
// prepares all of its statements.
func NewStore(db *sql.DB, tokenizer Tokenizer) (*Store, error) {
	s := &Store{
		db:        db,
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModelInfo, `SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, model_order FROM markov_models;`},
		{&s.stmtAddModel, `INSERT INTO markov_models (model_name, model_order) VALUES (?, ?);`},
		{&s.stmtModelChains, `SELECT COUNT(*) FROM markov_chains WHERE model_id = ?;`},
		{&s.stmtModelStarters, `SELECT COUNT(*) FROM markov_chains WHERE model_id = ? AND prefix_id = ?;`},
		{&s.stmtModelFreq, `SELECT coalesce(SUM(frequency), 0) FROM markov_chains WHERE model_id = ?;`},
		{&s.stmtModelSequences, `SELECT COUNT(*) FROM markov_sequences WHERE model_id = ?;`},
		{&s.stmtInsertLink, `INSERT INTO markov_chains (model_id, prefix_id, next_token_id) VALUES (?, ?, ?) ON CONFLICT DO UPDATE SET frequency = frequency + 1;`},
		{&s.stmtGetTokenID, `SELECT token_id FROM markov_vocabulary WHERE token_text = ?;`},
		{&s.stmtGetPrefixID, `SELECT prefix_id FROM markov_prefixes WHERE prefix_text = ?;`},
		{&s.stmtGetTokenText, `SELECT token_text FROM markov_vocabulary WHERE token_id = ?;`},
		{&s.stmtGetChain, `SELECT next_token_id, frequency FROM markov_chains WHERE model_id = ? AND prefix_id = ? ORDER BY next_token_id;`},
		{&s.stmtGetVocabLen, `SELECT COUNT(*) FROM markov_vocabulary;`},
		{&s.stmtGetPrefixLen, `SELECT COUNT(*) FROM markov_prefixes;`},
		{&s.stmtInsertVocab, `INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`},
		{&s.stmtGetOrInsertPrefix, `INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`},
		{&s.stmtGetSequences, `SELECT token_ids FROM markov_sequences WHERE model_id = ? AND (? <= 0 OR seq_length = ?) ORDER BY seq_id;`},
		{&s.stmtGetLengths, `SELECT seq_length, COUNT(*) FROM markov_sequences WHERE model_id = ? GROUP BY seq_length;`},
	}

	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement %q: %w", st.query, err)
		}
		*st.dst = stmt
	}

	return s, nil
}

// Close releases all prepared SQL statements held by the Store. The database
// itself is left open.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo, s.stmtGetModels, s.stmtAddModel, s.stmtModelChains,
		s.stmtModelStarters, s.stmtModelFreq, s.stmtModelSequences, s.stmtInsertLink,
		s.stmtGetTokenID, s.stmtGetPrefixID, s.stmtGetTokenText, s.stmtGetChain,
		s.stmtGetVocabLen, s.stmtGetPrefixLen, s.stmtInsertVocab, s.stmtGetOrInsertPrefix,
		s.stmtGetSequences, s.stmtGetLengths,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Tokenizer returns the tokenizer the Store trains with.
func (s *Store) Tokenizer() Tokenizer { return s.tokenizer }
