package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ModelInfo holds the metadata of a corpus model: its unique ID, name, and the
// order of the transition counts kept for it.
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// GetModelInfos retrieves metadata for all models currently in the database,
// returning them in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Order); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model specified by name.
// It returns sql.ErrNoRows if there is no such model.
func (s *Store) GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error) {
	var modelId, modelOrder int
	err := s.stmtGetModelInfo.QueryRowContext(ctx, modelName).Scan(&modelId, &modelOrder)
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:    modelId,
		Name:  modelName,
		Order: modelOrder,
	}, nil
}

// InsertModel creates a new model entry in the database. The order must be at
// least 1.
func (s *Store) InsertModel(ctx context.Context, model ModelInfo) error {
	if model.Order < 1 {
		return fmt.Errorf("model %q: order must be at least 1, got %d", model.Name, model.Order)
	}
	_, err := s.stmtAddModel.ExecContext(ctx, model.Name, model.Order)
	return err
}

// EnsureModel returns the model named name, creating it with the given order
// if it does not exist yet.
func (s *Store) EnsureModel(ctx context.Context, name string, order int) (ModelInfo, error) {
	model, err := s.GetModelInfo(ctx, name)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, err
	}
	if err = s.InsertModel(ctx, ModelInfo{Name: name, Order: order}); err != nil {
		return ModelInfo{}, err
	}
	return s.GetModelInfo(ctx, name)
}

// RemoveModel deletes a model with all of its chains and sequences. The
// operation is performed within a transaction.
func (s *Store) RemoveModel(ctx context.Context, model ModelInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_chains WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove chains for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_sequences WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove sequences for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", model.Id, err)
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)
	return nil
}
