package template

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/tplspec/packages/predicate"
)

// Filter transforms a value in a `value | name(args)` expression.
type Filter func(value any, args ...any) (any, error)

// Loader resolves template names to source text.
type Loader interface {
	Load(name string) (string, error)
}

// MapLoader serves templates from memory.
type MapLoader map[string]string

func (m MapLoader) Load(name string) (string, error) {
	src, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return src, nil
}

// FSLoader serves templates from an fs.FS.
type FSLoader struct {
	fsys fs.FS
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// NewDirLoader serves templates relative to dir on disk.
func NewDirLoader(dir string) *FSLoader {
	return &FSLoader{fsys: os.DirFS(dir)}
}

func (l *FSLoader) Load(name string) (string, error) {
	data, err := fs.ReadFile(l.fsys, strings.TrimPrefix(name, "./"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

// Environment holds everything templates compile and render against:
// tags, filters, predicates, globals and the loader.
type Environment struct {
	loader     Loader
	predicates *predicate.Registry
	logger     *slog.Logger

	mu      sync.RWMutex
	tags    map[string]TagParser
	filters map[string]Filter
	globals map[string]any
	cache   map[string]*Template
}

type Option func(*Environment)

func WithLoader(l Loader) Option {
	return func(e *Environment) {
		e.loader = l
	}
}

// WithPredicates replaces the default predicate registry.
func WithPredicates(r *predicate.Registry) Option {
	return func(e *Environment) {
		e.predicates = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Environment) {
		e.logger = l
	}
}

func WithGlobals(vars map[string]any) Option {
	return func(e *Environment) {
		for k, v := range vars {
			e.globals[k] = v
		}
	}
}

func NewEnvironment(opts ...Option) *Environment {
	e := &Environment{
		loader:  MapLoader{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tags:    make(map[string]TagParser, len(builtinTags)),
		filters: defaultFilters(),
		globals: defaultGlobals(),
		cache:   make(map[string]*Template),
	}
	for name, fn := range builtinTags {
		e.tags[name] = fn
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.predicates == nil {
		e.predicates = predicate.NewDefaultRegistry()
	}
	e.predicates.RegisterFunc("defined", func(subject any, args ...any) (bool, error) {
		_, undef := isUndefined(subject)
		return !undef, nil
	})
	e.predicates.RegisterFunc("undefined", func(subject any, args ...any) (bool, error) {
		_, undef := isUndefined(subject)
		return undef, nil
	})
	return e
}

// RegisterTag installs a custom statement. Registering a built-in name
// replaces it.
func (e *Environment) RegisterTag(name string, fn TagParser) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tags[name] = fn
	e.cache = make(map[string]*Template)
}

func (e *Environment) RegisterFilter(name string, fn Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = fn
}

func (e *Environment) RegisterPredicate(name string, fn func(subject any, args ...any) (bool, error)) {
	e.predicates.RegisterFunc(name, fn)
}

func (e *Environment) Predicates() *predicate.Registry {
	return e.predicates
}

func (e *Environment) SetGlobal(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = value
}

func (e *Environment) Logger() *slog.Logger {
	return e.logger
}

func (e *Environment) tag(name string) (TagParser, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.tags[name]
	return fn, ok
}

func (e *Environment) filter(name string) (Filter, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.filters[name]
	return fn, ok
}

func (e *Environment) global(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.globals[name]
	return v, ok
}

// ParseString compiles src without caching it.
func (e *Environment) ParseString(name, src string) (*Template, error) {
	tmpl, err := NewParser(e, name, src).Parse()
	if err != nil {
		e.logger.Debug("template parse failed", "template", name, "error", err)
		return nil, err
	}
	return tmpl, nil
}

// GetTemplate loads and compiles name through the loader, caching the result.
func (e *Environment) GetTemplate(name string) (*Template, error) {
	e.mu.RLock()
	tmpl, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	src, err := e.loader.Load(name)
	if err != nil {
		return nil, err
	}
	tmpl, err = e.ParseString(name, src)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[name] = tmpl
	e.mu.Unlock()
	e.logger.Debug("template compiled", "template", name, "nodes", len(tmpl.Nodes))
	return tmpl, nil
}

// ClearCache drops compiled templates so the next GetTemplate reloads them.
func (e *Environment) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*Template)
}

// Render loads name and renders it with vars.
func (e *Environment) Render(name string, vars map[string]any) (string, error) {
	tmpl, err := e.GetTemplate(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(vars)
}

// Template is a compiled template bound to its environment.
type Template struct {
	Name  string
	Nodes []Node
	env   *Environment
}

func (t *Template) Render(vars map[string]any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (t *Template) Execute(w io.Writer, vars map[string]any) error {
	return newContext(t.env, t.Name, vars).Render(t.Nodes, w)
}
