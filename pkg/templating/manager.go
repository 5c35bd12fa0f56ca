package templating

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/CTAG07/cmarkov/pkg/markov"
	"github.com/CTAG07/cmarkov/pkg/nhmm"
)

const (
	// TemplateExt marks files that are rendered by name.
	TemplateExt = ".tmpl"
	// PartialExt marks files holding shared definitions.
	PartialExt = ".part"
)

// ErrUnknownTemplate is returned by Execute for a name that was not loaded.
var ErrUnknownTemplate = errors.New("templating: unknown template")

// Source binds one execution to a model, a tokenizer and a random source.
type Source struct {
	Model     *nhmm.Model
	Tokenizer markov.Tokenizer
	Rand      *rand.Rand
}

// Manager loads templates from a directory and renders them. All methods are
// safe for concurrent use.
type Manager struct {
	logger *slog.Logger
	dir    string

	mu        sync.RWMutex
	templates *template.Template
	names     []string
}

// NewManager creates a Manager over dir and loads it.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	m := &Manager{dir: dir, logger: logger}
	if err := m.Refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

// Refresh reparses every template and partial in the directory. On error the
// previously loaded set stays active.
func (m *Manager) Refresh() error {
	set := template.New("").Funcs(funcMap(nil))

	var names []string
	for _, ext := range []string{TemplateExt, PartialExt} {
		files, err := filepath.Glob(filepath.Join(m.dir, "*"+ext))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}
		if set, err = set.ParseFiles(files...); err != nil {
			m.logger.Error("Failed to parse template files", "dir", m.dir, "error", err)
			return fmt.Errorf("failed to parse %s files: %w", ext, err)
		}
		if ext == TemplateExt {
			for _, f := range files {
				names = append(names, filepath.Base(f))
			}
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		m.logger.Warn("No template files found", "dir", m.dir)
	}

	m.mu.Lock()
	m.templates = set
	m.names = names
	m.mu.Unlock()

	m.logger.Info("Loaded templates", "dir", m.dir, "count", len(names))
	return nil
}

// Names returns the names of the loaded full templates.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.names...)
}

// Dir returns the template directory.
func (m *Manager) Dir() string { return m.dir }

// bound returns a copy of the loaded set whose functions draw from src.
func (m *Manager) bound(src *Source) (*template.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, err := m.templates.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone templates: %w", err)
	}
	return set.Funcs(funcMap(src)), nil
}

// Execute renders the template name to w. The name may be given with or
// without its extension.
func (m *Manager) Execute(w io.Writer, name string, src *Source) error {
	if !strings.HasSuffix(name, TemplateExt) {
		name += TemplateExt
	}
	set, err := m.bound(src)
	if err != nil {
		return err
	}
	if set.Lookup(name) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return set.ExecuteTemplate(w, name, src)
}

// ExecuteString parses content against the loaded partials and renders it.
func (m *Manager) ExecuteString(w io.Writer, content string, src *Source) error {
	set, err := m.bound(src)
	if err != nil {
		return err
	}
	t, err := set.New("inline").Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(w, src)
}
