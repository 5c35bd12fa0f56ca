package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CTAG07/cmarkov/pkg/templating"
)

func newTemplateServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "line.tmpl"), []byte(`{{sentence}}`), 0o644))
	tm, err := templating.NewManager(dir, discard)
	require.NoError(t, err)

	_, models := newModelServer(t, nil)
	mux := http.NewServeMux()
	NewTemplateAPI(tm, models, discard).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getText(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestTemplateAPI(t *testing.T) {
	srv := newTemplateServer(t)

	var names []string
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/templates", nil, &names)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"line.tmpl"}, names)

	code, body := getText(t, http.MethodGet, srv.URL+"/api/render/line?seed=4", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, []string{"the dog ran.", "a dog ran."}, body)

	_, again := getText(t, http.MethodGet, srv.URL+"/api/render/line?seed=4", "")
	assert.Equal(t, body, again)

	code, _ = getText(t, http.MethodGet, srv.URL+"/api/render/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = getText(t, http.MethodGet, srv.URL+"/api/render/line?seed=x", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = getText(t, http.MethodPost, srv.URL+"/api/render", `{{length}} {{solutionCount}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "3 2", body)

	code, _ = getText(t, http.MethodPost, srv.URL+"/api/render", `{{broken`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getText(t, http.MethodPost, srv.URL+"/api/templates/refresh", "")
	assert.Equal(t, http.StatusNoContent, code)
}
