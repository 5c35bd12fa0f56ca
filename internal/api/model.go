package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

// Builder trains a fresh model, typically from the current corpus.
type Builder func(ctx context.Context) (*nhmm.Model, error)

// ModelAPI holds the dependencies for the constrained model handlers.
type ModelAPI struct {
	mu          sync.RWMutex
	model       *nhmm.Model
	build       Builder
	tokenizer   markov.Tokenizer
	maxGenerate int
	logger      *slog.Logger
}

// NewModelAPI creates a ModelAPI serving model. build is used by the reload
// endpoint and may be nil, which disables it.
func NewModelAPI(model *nhmm.Model, build Builder, tokenizer markov.Tokenizer, maxGenerate int, logger *slog.Logger) *ModelAPI {
	return &ModelAPI{
		model:       model,
		build:       build,
		tokenizer:   tokenizer,
		maxGenerate: maxGenerate,
		logger:      logger,
	}
}

// RegisterRoutes sets up the routing for the model endpoints.
func (m *ModelAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/model", m.handleModel)
	mux.HandleFunc("/api/model/reload", m.handleReload)
	mux.HandleFunc("/api/generate", m.handleGenerate)
	mux.HandleFunc("/api/probability", m.handleProbability)
	mux.HandleFunc("/api/solutions/count", m.handleSolutionCount)
}

func (m *ModelAPI) current() *nhmm.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model
}

// GenerateRequest asks for Count sentences. A Seed makes the response
// reproducible.
type GenerateRequest struct {
	Count int     `json:"count"`
	Seed  *uint64 `json:"seed,omitempty"`
}

// Sentence is one generated sentence.
type Sentence struct {
	Words       []string `json:"words"`
	Text        string   `json:"text"`
	Probability float64  `json:"probability"`
}

// GenerateResponse is the body returned by the generate endpoint.
type GenerateResponse struct {
	Sentences []Sentence `json:"sentences"`
}

// ProbabilityRequest names a sentence either as words or as text to tokenize.
type ProbabilityRequest struct {
	Words []string `json:"words,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// ProbabilityResponse is the body returned by the probability endpoint.
type ProbabilityResponse struct {
	Words       []string `json:"words"`
	Probability float64  `json:"probability"`
}

// handleModel returns the model's debug information.
func (m *ModelAPI) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	respondWithJSON(w, http.StatusOK, m.current().DebugInfo())
}

// handleReload retrains the model and swaps it in once training succeeds.
func (m *ModelAPI) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if m.build == nil {
		respondWithError(w, http.StatusNotImplemented, "Reloading is not configured")
		return
	}
	model, err := m.build(r.Context())
	if err != nil {
		m.logger.Error("Failed to rebuild model", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, nhmm.ErrUnsatisfiable) || errors.Is(err, nhmm.ErrNoSequences) {
			status = http.StatusUnprocessableEntity
		}
		respondWithError(w, status, fmt.Sprintf("Reload failed: %v", err))
		return
	}

	m.mu.Lock()
	m.model = model
	m.mu.Unlock()

	m.logger.Info("Model reloaded", "sentence_length", model.SentenceLength())
	respondWithJSON(w, http.StatusOK, model.DebugInfo())
}

// handleGenerate draws sentences with a random source private to the request.
func (m *ModelAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	req := GenerateRequest{Count: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Count < 1 || req.Count > m.maxGenerate {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", m.maxGenerate))
		return
	}

	var rng *rand.Rand
	if req.Seed != nil {
		rng = rand.New(rand.NewPCG(*req.Seed, *req.Seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	model := m.current()
	seqs, err := model.GenerateN(req.Count, nhmm.WithRand(rng))
	if err != nil {
		m.logger.Error("Failed to generate sentences", "error", err)
		respondWithError(w, statusFor(err), fmt.Sprintf("Generation failed: %v", err))
		return
	}

	resp := GenerateResponse{Sentences: make([]Sentence, 0, len(seqs))}
	for _, words := range seqs {
		p, err := model.Probability(words)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Scoring failed: %v", err))
			return
		}
		resp.Sentences = append(resp.Sentences, Sentence{
			Words:       words,
			Text:        markov.Join(m.tokenizer, words),
			Probability: p,
		})
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleProbability scores a sentence against the model.
func (m *ModelAPI) handleProbability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req ProbabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	words := req.Words
	if len(words) == 0 && req.Text != "" {
		var err error
		if words, err = markov.Split(m.tokenizer, req.Text); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Could not tokenize text: %v", err))
			return
		}
	}

	p, err := m.current().Probability(words)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, ProbabilityResponse{Words: words, Probability: p})
}

// handleSolutionCount returns the number of sentences the model can generate
// as a decimal string, since it can exceed every fixed-size integer.
func (m *ModelAPI) handleSolutionCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	count, err := m.current().SolutionCount()
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"count": count.String()})
}

// statusFor maps model errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, nhmm.ErrNotTrained):
		return http.StatusServiceUnavailable
	case errors.Is(err, nhmm.ErrSentenceLength):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
