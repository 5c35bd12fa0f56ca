package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

// chainLink is a buffered prefix -> token increment.
type chainLink struct {
	prefixID    int
	nextTokenID int
}

// sequenceRow is a buffered sentence.
type sequenceRow struct {
	length   int
	tokenIDs string
}

// InsertToken provides a low-level way to insert or increment a single
// chain link (`prefix -> token`) for a given model. It does not record a
// sequence. For bulk data use Train.
func (s *Store) InsertToken(ctx context.Context, model ModelInfo, prefix string, token int) error {
	var prefixID int
	err := s.stmtGetPrefixID.QueryRowContext(ctx, prefix).Scan(&prefixID)
	if err != nil {
		return fmt.Errorf("could not get prefix ID for '%s': %w", prefix, err)
	}
	_, err = s.stmtInsertLink.ExecContext(ctx, model.Id, prefixID, token)
	if err != nil {
		return fmt.Errorf("could not insert token for '%s': %w", prefix, err)
	}
	return nil
}

// maxSentenceLength caps the memory one runaway sentence can take.
const maxSentenceLength = 4096

// batchSize is how many rows are buffered before being written out.
const batchSize = 1000

// ingester adds sentences of words to one model inside a transaction,
// buffering chain links and sequences into batches.
type ingester struct {
	ctx   context.Context
	model ModelInfo

	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	stmtInsertChain       *sql.Stmt
	stmtInsertSequence    *sql.Stmt

	prefixCache map[string]int
	chainBatch  []chainLink
	seqBatch    []sequenceRow
	current     []int
	sentences   int64
}

// newIngester prepares the statements of an ingester on tx. The returned
// function closes them.
func (s *Store) newIngester(ctx context.Context, tx *sql.Tx, model ModelInfo) (*ingester, func(), error) {
	in := &ingester{
		ctx:                   ctx,
		model:                 model,
		stmtInsertVocab:       tx.StmtContext(ctx, s.stmtInsertVocab),
		stmtGetOrInsertPrefix: tx.StmtContext(ctx, s.stmtGetOrInsertPrefix),
		prefixCache:           make(map[string]int),
		chainBatch:            make([]chainLink, 0, batchSize),
		seqBatch:              make([]sequenceRow, 0, batchSize),
	}
	var err error
	in.stmtInsertChain, err = tx.PrepareContext(ctx, `INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, 1) ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + 1;`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare batch chain insert statement: %w", err)
	}
	in.stmtInsertSequence, err = tx.PrepareContext(ctx, `INSERT INTO markov_sequences (model_id, seq_length, token_ids) VALUES (?, ?, ?);`)
	if err != nil {
		_ = in.stmtInsertChain.Close()
		return nil, nil, fmt.Errorf("failed to prepare sequence insert statement: %w", err)
	}
	return in, func() {
		_ = in.stmtInsertChain.Close()
		_ = in.stmtInsertSequence.Close()
	}, nil
}

// word appends text to the current sentence. Words past maxSentenceLength are
// dropped.
func (in *ingester) word(text string) error {
	if len(in.current) >= maxSentenceLength {
		return nil
	}
	var tokenID int
	if err := in.stmtInsertVocab.QueryRowContext(in.ctx, text).Scan(&tokenID); err != nil {
		return fmt.Errorf("sql insert vocabulary error for token '%s': %w", text, err)
	}
	in.current = append(in.current, tokenID)
	return nil
}

// endSentence buffers the current sentence, if any, and starts a new one.
func (in *ingester) endSentence() error {
	if len(in.current) == 0 {
		return nil
	}
	if err := processSentence(in.ctx, in.model, in.current, in.prefixCache, &in.chainBatch, in.stmtGetOrInsertPrefix); err != nil {
		return fmt.Errorf("sentence processing error: %w", err)
	}
	in.seqBatch = append(in.seqBatch, sequenceRow{length: len(in.current), tokenIDs: string(joinIDs(nil, in.current))})
	in.current = in.current[:0]
	in.sentences++
	if len(in.chainBatch) >= batchSize || len(in.seqBatch) >= batchSize {
		return in.flush()
	}
	return nil
}

func (in *ingester) flush() error {
	for _, link := range in.chainBatch {
		if _, err := in.stmtInsertChain.ExecContext(in.ctx, in.model.Id, link.prefixID, link.nextTokenID); err != nil {
			return fmt.Errorf("failed during batch insert of chain link (%d -> %d): %w", link.prefixID, link.nextTokenID, err)
		}
	}
	for _, seq := range in.seqBatch {
		if _, err := in.stmtInsertSequence.ExecContext(in.ctx, in.model.Id, seq.length, seq.tokenIDs); err != nil {
			return fmt.Errorf("failed during batch insert of sequence: %w", err)
		}
	}
	in.chainBatch = in.chainBatch[:0]
	in.seqBatch = in.seqBatch[:0]
	return nil
}

// finish ends the pending sentence and writes out every buffered row.
func (in *ingester) finish() error {
	if err := in.endSentence(); err != nil {
		return err
	}
	return in.flush()
}

// Train tokenizes data and adds it to model. Every sentence, cut at
// end-of-chain tokens, is stored as a sequence and counted into the model's
// order-N transitions. The whole call runs in one transaction; on error
// nothing is stored.
func (s *Store) Train(ctx context.Context, model ModelInfo, data io.Reader) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	in, closeStmts, err := s.newIngester(ctx, tx, model)
	if err != nil {
		return err
	}
	defer closeStmts()

	stream := s.tokenizer.NewStream(data)
	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if token.EOC {
			err = in.endSentence()
		} else {
			err = in.word(token.Text)
		}
		if err != nil {
			return err
		}
	}

	if err = in.finish(); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Training completed",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int64("sentences_processed", in.sentences),
	)
	return nil
}

// processSentence buffers one chain link per position of sentence plus the
// final link into EndTokenID. The prefix before the first token is made of
// StartTokenID.
func processSentence(ctx context.Context, model ModelInfo, sentence []int, prefixCache map[string]int, chainBatch *[]chainLink, stmtGetOrInsertPrefix *sql.Stmt) error {
	if len(sentence) == 0 {
		return nil
	}

	fullSlice := make([]int, len(sentence)+model.Order+1)
	copy(fullSlice[model.Order:len(fullSlice)-1], sentence)
	fullSlice[len(fullSlice)-1] = EndTokenID

	var keyBuf []byte
	for i := 0; i < len(sentence)+1; i++ {
		keyBuf = joinIDs(keyBuf[:0], fullSlice[i:i+model.Order])
		prefixKey := string(keyBuf)

		prefixID, ok := prefixCache[prefixKey]
		if !ok {
			if err := stmtGetOrInsertPrefix.QueryRowContext(ctx, prefixKey).Scan(&prefixID); err != nil {
				return fmt.Errorf("failed to get or insert prefix '%s': %w", prefixKey, err)
			}
			prefixCache[prefixKey] = prefixID
		}

		*chainBatch = append(*chainBatch, chainLink{prefixID: prefixID, nextTokenID: fullSlice[i+model.Order]})
	}
	return nil
}

// joinIDs appends the space-separated decimal form of ids to buf. Prefix keys
// and stored sequences share this encoding.
func joinIDs(buf []byte, ids []int) []byte {
	for j, id := range ids {
		if j > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return buf
}
