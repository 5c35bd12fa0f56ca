package markov

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Corpus is the set of training sentences of one model loaded from a Store.
// It satisfies nhmm.Source.
type Corpus struct {
	order     int
	sequences [][]string
}

// NewCorpus builds a Corpus from in-memory sequences.
func NewCorpus(order int, sequences [][]string) *Corpus {
	return &Corpus{order: order, sequences: sequences}
}

// Order returns the order of the model the corpus was loaded from.
func (c *Corpus) Order() int { return c.order }

// Sequences returns the training sentences.
func (c *Corpus) Sequences() [][]string { return c.sequences }

// Len returns the number of sentences.
func (c *Corpus) Len() int { return len(c.sequences) }

// vocabChunk bounds the number of bound parameters of one lookup query.
const vocabChunk = 500

// Corpus loads the sentences of model that have exactly length tokens, in
// training order. A length of 0 or less loads every sentence.
func (s *Store) Corpus(ctx context.Context, model ModelInfo, length int) (*Corpus, error) {
	rows, err := s.stmtGetSequences.QueryContext(ctx, model.Id, length, length)
	if err != nil {
		return nil, fmt.Errorf("could not query sequences for model %d: %w", model.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var idSeqs [][]int
	tokenIDs := make(map[int]struct{})
	for rows.Next() {
		var text string
		if err = rows.Scan(&text); err != nil {
			return nil, err
		}
		fields := strings.Fields(text)
		seq := make([]int, len(fields))
		for i, f := range fields {
			if seq[i], err = strconv.Atoi(f); err != nil {
				return nil, fmt.Errorf("corrupt sequence %q: %w", text, err)
			}
			tokenIDs[seq[i]] = struct{}{}
		}
		idSeqs = append(idSeqs, seq)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	vocab, err := s.lookupTokens(ctx, tokenIDs)
	if err != nil {
		return nil, err
	}

	sequences := make([][]string, len(idSeqs))
	for i, ids := range idSeqs {
		words := make([]string, len(ids))
		for j, id := range ids {
			text, ok := vocab[id]
			if !ok {
				return nil, fmt.Errorf("consistency error: token id %d not found in vocabulary", id)
			}
			words[j] = text
		}
		sequences[i] = words
	}

	s.logger.DebugContext(ctx, "Corpus loaded",
		slog.String("model_name", model.Name),
		slog.Int("length", length),
		slog.Int("sequences", len(sequences)),
		slog.Int("vocabulary", len(vocab)),
	)

	return &Corpus{order: model.Order, sequences: sequences}, nil
}

// lookupTokens resolves token IDs to their text in chunked IN queries.
func (s *Store) lookupTokens(ctx context.Context, ids map[int]struct{}) (map[int]string, error) {
	out := make(map[int]string, len(ids))
	args := make([]any, 0, vocabChunk)
	placeholders := make([]string, 0, vocabChunk)

	query := func() error {
		if len(args) == 0 {
			return nil
		}
		q := fmt.Sprintf(`SELECT token_id, token_text FROM markov_vocabulary WHERE token_id IN (%s)`, strings.Join(placeholders, ","))
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer func(rows *sql.Rows) {
			_ = rows.Close()
		}(rows)
		for rows.Next() {
			var id int
			var text string
			if err = rows.Scan(&id, &text); err != nil {
				return err
			}
			out[id] = text
		}
		args = args[:0]
		placeholders = placeholders[:0]
		return rows.Err()
	}

	for id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, "?")
		if len(args) == vocabChunk {
			if err := query(); err != nil {
				return nil, err
			}
		}
	}
	if err := query(); err != nil {
		return nil, err
	}
	return out, nil
}

// Lengths returns how many sentences of each length model holds.
func (s *Store) Lengths(ctx context.Context, model ModelInfo) (map[int]int, error) {
	rows, err := s.stmtGetLengths.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	lengths := make(map[int]int)
	for rows.Next() {
		var length, count int
		if err = rows.Scan(&length, &count); err != nil {
			return nil, err
		}
		lengths[length] = count
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return lengths, nil
}

// CommonLength returns the length with the most sentences of at least
// minLength tokens, preferring the longer length on ties, and 0 if there is
// none.
func CommonLength(lengths map[int]int, minLength int) int {
	best, bestCount := 0, 0
	for length, count := range lengths {
		if length < minLength {
			continue
		}
		if count > bestCount || (count == bestCount && length > best) {
			best, bestCount = length, count
		}
	}
	return best
}
