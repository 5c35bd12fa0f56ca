package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Token is a single tokenized unit of text, flagged when it ends a chain
// (e.g. a sentence).
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer splits input text into tokens and renders token sequences back
// into text.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Separator returns the string to put between prev and current when
	// rendering a sequence.
	Separator(prev, current string) string
	// EOC returns the string that closes a rendered sequence ending in last.
	EOC(last string) string
}

// StreamTokenizer is a stateful tokenizer that returns one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (*Token, error)
}

// Join renders words as text using tok's separators and end-of-chain string.
func Join(tok Tokenizer, words []string) string {
	if len(words) == 0 {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(words[0])
	for i := 1; i < len(words); i++ {
		builder.WriteString(tok.Separator(words[i-1], words[i]))
		builder.WriteString(words[i])
	}
	builder.WriteString(tok.EOC(words[len(words)-1]))
	return builder.String()
}

// Split tokenizes text with tok and returns the tokens that do not end a
// chain.
func Split(tok Tokenizer, text string) ([]string, error) {
	stream := tok.NewStream(strings.NewReader(text))
	var words []string
	for {
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return words, nil
			}
			return nil, err
		}
		if !token.EOC {
			words = append(words, token.Text)
		}
	}
}

// ChainToken is a possible next token after a prefix, with the number of
// times it followed that prefix in training.
type ChainToken struct {
	Id   int
	Freq int
}

// PrefixKey builds the key GetNextTokens expects from token IDs.
func PrefixKey(ids ...int) string {
	return string(joinIDs(nil, ids))
}

// GetNextTokens retrieves all possible subsequent tokens for a prefix key in
// model, ordered by token ID, with the sum of their frequencies. An unknown
// prefix yields a nil slice and a total of 0.
func (s *Store) GetNextTokens(ctx context.Context, model ModelInfo, prefix string) ([]ChainToken, int, error) {
	var prefixID int
	err := s.stmtGetPrefixID.QueryRowContext(ctx, prefix).Scan(&prefixID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("could not get prefix ID for '%s': %w", prefix, err)
	}

	rows, err := s.stmtGetChain.QueryContext(ctx, model.Id, prefixID)
	if err != nil {
		return nil, 0, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var tokens []ChainToken
	var totalFreq int
	for rows.Next() {
		var token ChainToken
		if err = rows.Scan(&token.Id, &token.Freq); err != nil {
			return nil, 0, err
		}
		tokens = append(tokens, token)
		totalFreq += token.Freq
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return tokens, totalFreq, nil
}

// VocabStr returns the ID of a token text.
func (s *Store) VocabStr(ctx context.Context, token string) (int, error) {
	var tokenId int
	if err := s.stmtGetTokenID.QueryRowContext(ctx, token).Scan(&tokenId); err != nil {
		return 0, err
	}
	return tokenId, nil
}

// VocabInt returns the text of a token ID.
func (s *Store) VocabInt(ctx context.Context, id int) (string, error) {
	var tokenText string
	if err := s.stmtGetTokenText.QueryRowContext(ctx, id).Scan(&tokenText); err != nil {
		return "", err
	}
	return tokenText, nil
}
