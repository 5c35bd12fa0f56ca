package markov

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const (
	testDSNParams  = "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000"
	benchDSNParams = "?_journal_mode=WAL&_synchronous=OFF&_cache_size=-16000"
)

// openStore creates a fresh SQLite file under tb's temp dir with the schema
// in place and a default tokenizer. Everything is released on cleanup.
func openStore(tb testing.TB, params string) (*sql.DB, *Store) {
	tb.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(tb.TempDir(), "corpus.db")+params)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err = SetupSchema(db); err != nil {
		tb.Fatalf("failed to set up schema: %v", err)
	}
	s, err := NewStore(db, NewDefaultTokenizer())
	if err != nil {
		tb.Fatalf("NewStore() error = %v", err)
	}
	tb.Cleanup(s.Close)
	return db, s
}

func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	return openStore(t, testDSNParams)
}

func setupTestDBBench(b *testing.B) (*sql.DB, *Store) {
	b.Helper()
	return openStore(b, benchDSNParams)
}

// setupTestDBWithTraining also creates "test_model" (order 2) holding two
// sentences of length 4.
func setupTestDBWithTraining(t *testing.T) (context.Context, *Store, ModelInfo) {
	t.Helper()
	_, s := setupTestDB(t)
	ctx := context.Background()

	model, err := s.EnsureModel(ctx, "test_model", 2)
	if err != nil {
		t.Fatalf("setup: EnsureModel() failed: %v", err)
	}
	if err = s.Train(ctx, model, strings.NewReader("one fish two fish. red fish blue fish.")); err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return ctx, s, model
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a fixed pseudo-random corpus of short
// sentences over a small vocabulary, so chains and sentence lengths repeat
// the way they do in real verse.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		vocab := strings.Fields(`the a one red blue old cold fish cat dog bird tree moon sea
			sat ran swam sang fell rose under over near with and slowly softly again`)
		r := rand.New(rand.NewPCG(1, 2))

		var sb strings.Builder
		for range 20000 {
			n := 3 + r.IntN(6)
			for i := range n {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(vocab[r.IntN(len(vocab))])
			}
			sb.WriteString(".\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
