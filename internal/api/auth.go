package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/CTAG07/cmarkov/internal/auth"
)

// AuthHeader carries the raw API key.
const AuthHeader = "cmarkov-auth"

type contextKey string

const contextKeyPermissions = contextKey("permissions")

// AuthAPI guards the other APIs with scoped keys and manages the keys.
type AuthAPI struct {
	keys   *auth.KeyStore
	logger *slog.Logger
}

// NewAuthAPI creates a new instance of the AuthAPI.
func NewAuthAPI(keys *auth.KeyStore, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{
		keys:   keys,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/auth endpoints.
func (a *AuthAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/me", a.handleCheckMe)
	mux.HandleFunc("/api/auth/keys", a.handleKeys)
	mux.HandleFunc("/api/auth/keys/", a.handleKeyByID)
}

// CreateKeyRequest is the body for creating a key.
type CreateKeyRequest struct {
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CreateKeyResponse returns the only copy of the raw key.
type CreateKeyResponse struct {
	auth.Key
	RawKey string `json:"raw_key"`
}

// requiredScope returns the scope a request needs, or "" if any
// authenticated caller may make it.
func requiredScope(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/auth/me":
		return ""
	case strings.HasPrefix(path, "/api/auth/"):
		return auth.ScopeManage
	case path == "/api/model/reload":
		return auth.ScopeModelWrite
	case path == "/api/templates/refresh":
		return auth.ScopeModelWrite
	case strings.HasPrefix(path, "/api/corpus/"):
		if r.Method == http.MethodGet {
			return auth.ScopeCorpusRead
		}
		return auth.ScopeCorpusWrite
	default:
		return auth.ScopeModelRead
	}
}

// Authenticate resolves the request's key and rejects it unless the key holds
// the scope its route requires.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perms, err := a.keys.Authenticate(r.Context(), r.Header.Get(AuthHeader))
		if err != nil {
			if errors.Is(err, auth.ErrUnknownKey) {
				respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
				return
			}
			a.logger.Error("Authenticate failed to query API key", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if scope := requiredScope(r); scope != "" && !perms.Has(scope) {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires '"+scope+"' scope")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyPermissions, perms)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthAPI) handleCheckMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	perms, ok := r.Context().Value(contextKeyPermissions).(auth.Permissions)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid or missing key")
		return
	}
	scopes := make([]string, 0, len(perms))
	for s := range perms {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	respondWithJSON(w, http.StatusOK, map[string]any{"scopes": scopes})
}

func (a *AuthAPI) handleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		keys, err := a.keys.List(r.Context())
		if err != nil {
			a.logger.Error("Failed to list API keys", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		respondWithJSON(w, http.StatusOK, keys)
	case http.MethodPost:
		var req CreateKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		key, raw, err := a.keys.Create(r.Context(), req.Scopes, req.Description)
		if err != nil {
			if errors.Is(err, auth.ErrUnknownScope) {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			a.logger.Error("Failed to create API key", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to save new key")
			return
		}
		respondWithJSON(w, http.StatusCreated, CreateKeyResponse{Key: key, RawKey: raw})
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (a *AuthAPI) handleKeyByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/auth/keys/"), "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid key ID format in URL")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	switch err = a.keys.Delete(r.Context(), id); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, auth.ErrPrimaryKey):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnknownKey):
		respondWithError(w, http.StatusNotFound, "Key not found")
	default:
		a.logger.Error("Failed to delete API key", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete key")
	}
}
