package markov

import (
	"context"
	"database/sql"
	"errors"
)

// DBStats holds aggregated statistics for the whole database and each model.
type DBStats struct {
	Models     []ModelInfo        // All models in the database
	Stats      map[int]ModelStats // Model ID -> its stats
	VocabSize  int                // Unique tokens across all models, reserved tokens included
	PrefixSize int                // Unique prefixes across all models
}

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	TotalChains    int         // Unique prefix -> next token links
	TotalFrequency int         // Sum of all link frequencies
	StartingTokens int         // Unique tokens that start a sentence
	Sequences      int         // Stored sentences
	Lengths        map[int]int // Sentence length -> number of sentences
}

// GetStats returns a snapshot of statistics for the entire database.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := s.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	var vocabLen int
	if err = s.stmtGetVocabLen.QueryRowContext(ctx).Scan(&vocabLen); err != nil {
		return nil, err
	}

	var prefixLen int
	if err = s.stmtGetPrefixLen.QueryRowContext(ctx).Scan(&prefixLen); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(modelInfos))
	modelStats := make(map[int]ModelStats, len(modelInfos))
	for _, v := range modelInfos {
		models = append(models, v)
		var st ModelStats
		if err = s.stmtModelChains.QueryRowContext(ctx, v.Id).Scan(&st.TotalChains); err != nil {
			return nil, err
		}
		if err = s.stmtModelFreq.QueryRowContext(ctx, v.Id).Scan(&st.TotalFrequency); err != nil {
			return nil, err
		}
		if err = s.stmtModelSequences.QueryRowContext(ctx, v.Id).Scan(&st.Sequences); err != nil {
			return nil, err
		}

		starters := make([]int, v.Order)
		var startID int
		err = s.stmtGetPrefixID.QueryRowContext(ctx, PrefixKey(starters...)).Scan(&startID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, err
		default:
			if err = s.stmtModelStarters.QueryRowContext(ctx, v.Id, startID).Scan(&st.StartingTokens); err != nil {
				return nil, err
			}
		}

		if st.Lengths, err = s.Lengths(ctx, v); err != nil {
			return nil, err
		}
		modelStats[v.Id] = st
	}

	return &DBStats{
		Models:     models,
		Stats:      modelStats,
		VocabSize:  vocabLen,
		PrefixSize: prefixLen,
	}, nil
}
