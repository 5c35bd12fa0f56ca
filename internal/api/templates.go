package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/cmarkov/pkg/templating"
)

// maxTemplateBody caps inline templates posted for rendering.
const maxTemplateBody = 1 << 20

// TemplateAPI renders templates with the model currently served by a ModelAPI.
type TemplateAPI struct {
	tm     *templating.Manager
	models *ModelAPI
	logger *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(tm *templating.Manager, models *ModelAPI, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		tm:     tm,
		models: models,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for the template endpoints.
func (t *TemplateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates", t.handleList)
	mux.HandleFunc("/api/templates/refresh", t.handleRefresh)
	mux.HandleFunc("/api/render", t.handleRenderString)
	mux.HandleFunc("/api/render/", t.handleRender)
}

func (t *TemplateAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	respondWithJSON(w, http.StatusOK, t.tm.Names())
}

func (t *TemplateAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := t.tm.Refresh(); err != nil {
		t.logger.Error("API triggered template refresh failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh templates: %v", err))
		return
	}
	t.logger.Info("Templates refreshed via API")
	w.WriteHeader(http.StatusNoContent)
}

// source binds a render to the current model, seeded from the "seed" query
// parameter when present.
func (t *TemplateAPI) source(r *http.Request) (*templating.Source, error) {
	var rng *rand.Rand
	if s := r.URL.Query().Get("seed"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", s)
		}
		rng = rand.New(rand.NewPCG(seed, seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &templating.Source{Model: t.models.current(), Tokenizer: t.models.tokenizer, Rand: rng}, nil
}

// handleRender renders a loaded template by name.
func (t *TemplateAPI) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/render/"), "/")
	if name == "" {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}
	src, err := t.source(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err = t.tm.Execute(&buf, name, src); err != nil {
		if errors.Is(err, templating.ErrUnknownTemplate) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Template '%s' not found", name))
			return
		}
		respondWithError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to render template: %v", err))
		return
	}
	writeText(w, buf.Bytes())
}

// handleRenderString renders the template in the request body without saving it.
func (t *TemplateAPI) handleRenderString(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateBody))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}
	src, err := t.source(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err = t.tm.ExecuteString(&buf, string(body), src); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template execution failed: %v", err))
		return
	}
	writeText(w, buf.Bytes())
}

func writeText(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
