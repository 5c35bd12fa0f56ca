package markov

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ExportedModel is the serializable form of a model: its metadata and every
// training sentence in training order. Chains are rebuilt from the sentences
// on import, so the vocabulary and prefix IDs of the source database never
// leak into the file.
type ExportedModel struct {
	Name      string     `json:"name"`
	Order     int        `json:"order"`
	Sequences [][]string `json:"sequences"`
}

// ExportModel writes model as indented JSON to w.
func (s *Store) ExportModel(ctx context.Context, model ModelInfo, w io.Writer) error {
	corpus, err := s.Corpus(ctx, model, 0)
	if err != nil {
		return fmt.Errorf("could not load sequences for export: %w", err)
	}

	exported := ExportedModel{
		Name:      model.Name,
		Order:     model.Order,
		Sequences: corpus.Sequences(),
	}
	if exported.Sequences == nil {
		exported.Sequences = [][]string{}
	}

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("sequences_exported", len(exported.Sequences)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportModel reads an exported model from r and merges it into the
// database. A missing model is created with the exported order; an existing
// one keeps its own order and gains the imported sentences. The operation is
// transactional.
func (s *Store) ImportModel(ctx context.Context, r io.Reader) (ModelInfo, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return ModelInfo{}, fmt.Errorf("failed to decode json model: %w", err)
	}
	if imported.Name == "" {
		return ModelInfo{}, errors.New("imported model has no name")
	}
	if imported.Order < 1 {
		return ModelInfo{}, fmt.Errorf("model %q: order must be at least 1, got %d", imported.Name, imported.Order)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	model := ModelInfo{Name: imported.Name}
	err = tx.QueryRowContext(ctx, "SELECT model_id, model_order FROM markov_models WHERE model_name = ?", imported.Name).Scan(&model.Id, &model.Order)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, "INSERT INTO markov_models (model_name, model_order) VALUES (?, ?)", imported.Name, imported.Order)
		if err != nil {
			return ModelInfo{}, fmt.Errorf("failed to insert new model '%s': %w", imported.Name, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return ModelInfo{}, err
		}
		model.Id, model.Order = int(newID), imported.Order
	} else if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to query for model '%s': %w", imported.Name, err)
	}

	in, closeStmts, err := s.newIngester(ctx, tx, model)
	if err != nil {
		return ModelInfo{}, err
	}
	defer closeStmts()

	for i, seq := range imported.Sequences {
		if err = ctx.Err(); err != nil {
			return ModelInfo{}, err
		}
		for _, word := range seq {
			if word == "" {
				return ModelInfo{}, fmt.Errorf("sequence %d contains an empty token", i)
			}
			if err = in.word(word); err != nil {
				return ModelInfo{}, err
			}
		}
		if err = in.endSentence(); err != nil {
			return ModelInfo{}, err
		}
	}
	if err = in.finish(); err != nil {
		return ModelInfo{}, err
	}
	if err = tx.Commit(); err != nil {
		return ModelInfo{}, err
	}

	s.logger.InfoContext(ctx, "Model imported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int64("sequences_imported", in.sentences),
	)
	return model, nil
}
