package predicate

import (
	"fmt"
	"sort"
	"sync"
)

// Predicate is a boolean test over a subject and static arguments.
type Predicate interface {
	Test(subject any, args ...any) (bool, error)
}

// Func adapts a plain function to the Predicate interface.
type Func func(subject any, args ...any) (bool, error)

// Test calls f.
func (f Func) Test(subject any, args ...any) (bool, error) {
	return f(subject, args...)
}

// Registry maps predicate names to implementations. Registering an existing
// name replaces the previous predicate. Lookups may run concurrently; callers
// must not register while templates are rendering.
type Registry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		preds: make(map[string]Predicate),
	}
}

// NewDefaultRegistry returns a registry pre-populated with the built-in
// predicates.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.registerDefaults()
	return r
}

func (r *Registry) Register(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds[name] = p
}

func (r *Registry) RegisterFunc(name string, fn func(subject any, args ...any) (bool, error)) {
	r.Register(name, Func(fn))
}

func (r *Registry) Lookup(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preds[name]
	return p, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered predicate names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.preds))
	for name := range r.preds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ArityError reports a predicate called with the wrong number of arguments.
type ArityError struct {
	Predicate string
	Want      int
	Got       int
}

func (e *ArityError) Error() string {
	plural := "s"
	if e.Want == 1 {
		plural = ""
	}
	return fmt.Sprintf("test '%s' expects %d argument%s, got %d", e.Predicate, e.Want, plural, e.Got)
}

func checkArity(name string, args []any, want int) error {
	if len(args) != want {
		return &ArityError{Predicate: name, Want: want, Got: len(args)}
	}
	return nil
}
