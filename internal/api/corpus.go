package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/cmarkov/pkg/markov"
)

// CorpusAPI holds the dependencies for the corpus store handlers.
type CorpusAPI struct {
	store  *markov.Store
	logger *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(store *markov.Store, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/corpus endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/corpus/models", c.handleListAndCreateModels)
	mux.HandleFunc("/api/corpus/models/", c.handleModelByName)
	mux.HandleFunc("/api/corpus/stats", c.handleStats)
	mux.HandleFunc("/api/corpus/import", c.handleImport)
}

// CreateModelRequest is the body for creating a corpus model.
type CreateModelRequest struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// handleListAndCreateModels handles GET for listing and POST for creating models.
func (c *CorpusAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		models, err := c.store.GetModelInfos(r.Context())
		if err != nil {
			c.logger.Error("Failed to get model infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
			return
		}
		modelList := make([]markov.ModelInfo, 0, len(models))
		for _, model := range models {
			modelList = append(modelList, model)
		}
		respondWithJSON(w, http.StatusOK, modelList)

	case http.MethodPost:
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || req.Order <= 0 {
			respondWithError(w, http.StatusBadRequest, "Model name and a positive order are required")
			return
		}

		model := markov.ModelInfo{Name: req.Name, Order: req.Order}
		if err := c.store.InsertModel(r.Context(), model); err != nil {
			c.logger.Error("Failed to insert new model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create model: %v", err))
			return
		}
		newModel, err := c.store.GetModelInfo(r.Context(), req.Name)
		if err != nil {
			c.logger.Error("Failed to retrieve newly created model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify model creation: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, newModel)

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleModelByName routes actions for a specific model: delete, train,
// lengths, export.
func (c *CorpusAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/corpus/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	model, err := c.store.GetModelInfo(r.Context(), modelName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Model not found")
			return
		}
		c.logger.Error("Failed to get model info by name", "name", modelName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, "DELETE")
			return
		}
		if err = c.store.RemoveModel(r.Context(), model); err != nil {
			c.logger.Error("Failed to remove model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove model: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch parts[1] {
	case "train":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		if err = c.store.Train(r.Context(), model, r.Body); err != nil {
			c.logger.Error("Failed to train model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
			return
		}
		w.WriteHeader(http.StatusAccepted)

	case "lengths":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		lengths, err := c.store.Lengths(r.Context(), model)
		if err != nil {
			c.logger.Error("Failed to get sentence lengths", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, lengths)

	case "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model.Name+".json"))
		if err = c.store.ExportModel(r.Context(), model, w); err != nil {
			c.logger.Error("Failed to export model", "name", modelName, "error", err)
		}

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleStats returns statistics for the whole corpus database.
func (c *CorpusAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	stats, err := c.store.GetStats(r.Context())
	if err != nil {
		c.logger.Error("Failed to get corpus stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleImport merges an exported model from the request body.
func (c *CorpusAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	model, err := c.store.ImportModel(r.Context(), r.Body)
	if err != nil {
		c.logger.Error("Failed to import model", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, model)
}
