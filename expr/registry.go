// Package expr evaluates selection and variable expressions through a
// dispatch table of registered functions. Configuration names a function
// and its arguments; the registry compiles that into a Go closure once, and
// the closure is evaluated against every batch-shift view.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/deoache/susy-vbf/event"
)

var (
	ErrUnknownFunc     = errors.New("unknown expression function")
	ErrUnknownOp       = errors.New("unknown operator")
	ErrMissingArgument = errors.New("missing argument")
	ErrBadArgument     = errors.New("bad argument")
	ErrUnknownObject   = errors.New("unknown object")
)

// LumiMasker decides which (run, luminosity block) pairs are usable.
type LumiMasker interface {
	Mask(run, lumi []float64) []bool
}

// Env is what an expression sees: the current view of the batch, the
// objects selected from it, and the sample context.
type Env struct {
	Batch   *event.Batch
	Objects event.Objects
	Year    string
	IsMC    bool
	Lumi    LumiMasker
}

// Object returns a selected object collection.
func (e *Env) Object(name string) (*event.Collection, error) {
	c, ok := e.Objects[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownObject, name)
	}
	return c, nil
}

type (
	MaskFunc  func(env *Env) ([]bool, error)
	ValueFunc func(env *Env) ([]float64, error)

	MaskBuilder  func(r *Registry, s Spec) (MaskFunc, error)
	ValueBuilder func(r *Registry, s Spec) (ValueFunc, error)
)

// Registry is safe for concurrent compilation; compiled closures hold no
// shared mutable state.
type Registry struct {
	mu     sync.RWMutex
	masks  map[string]MaskBuilder
	values map[string]ValueBuilder
}

// NewRegistry returns a registry with the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{
		masks:  make(map[string]MaskBuilder),
		values: make(map[string]ValueBuilder),
	}
	registerBuiltins(r)
	return r
}

func (r *Registry) RegisterMask(name string, b MaskBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.masks[name] = b
}

func (r *Registry) RegisterValue(name string, b ValueBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = b
}

// Mask compiles a boolean expression.
func (r *Registry) Mask(s Spec) (MaskFunc, error) {
	r.mu.RLock()
	b, ok := r.masks[s.Func]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (masks: %v)", ErrUnknownFunc, s.Func, r.names(true))
	}
	return b(r, s)
}

// Value compiles a numeric expression.
func (r *Registry) Value(s Spec) (ValueFunc, error) {
	r.mu.RLock()
	b, ok := r.values[s.Func]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (values: %v)", ErrUnknownFunc, s.Func, r.names(false))
	}
	return b(r, s)
}

func (r *Registry) names(masks bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	if masks {
		for name := range r.masks {
			out = append(out, name)
		}
	} else {
		for name := range r.values {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
