// Package tools exposes each retrieval strategy as a named, schema-validated
// callable. The registry is a closed set built once at startup; the reasoning
// loop dispatches by name and stays agnostic to which concrete strategies
// exist.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cg-assist/backend/internal/catalog"
)

// Args is the argument mapping passed to a tool invocation.
type Args map[string]any

// FailureKind classifies why a tool invocation failed.
type FailureKind string

const (
	// FailureInvalidArgs means the args failed validation; the underlying
	// strategy was never executed.
	FailureInvalidArgs FailureKind = "invalid_args"
	// FailureNotFound means no tool with the requested name is registered.
	FailureNotFound FailureKind = "not_found"
	// FailureExecution means the strategy itself failed.
	FailureExecution FailureKind = "execution_error"
)

// Failure wraps a tool invocation error with its kind.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Payload is the result of a successful tool invocation. Exactly one of the
// fields is populated, depending on the tool.
type Payload struct {
	Results []catalog.SearchResult `json:"results,omitempty"`
	Stats   *catalog.Stats         `json:"stats,omitempty"`
	Detail  *catalog.FileDetails   `json:"detail,omitempty"`
}

// Count returns the number of records the payload carries.
func (p Payload) Count() int {
	switch {
	case p.Results != nil:
		return len(p.Results)
	case p.Stats != nil || p.Detail != nil:
		return 1
	default:
		return 0
	}
}

// Tool is one named retrieval or analytics operation.
type Tool struct {
	Name        string
	Description string
	Validate    func(Args) error
	Run         func(ctx context.Context, args Args) (Payload, error)
}

// Registry maps tool names to their implementations.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry builds a registry from the given tools. Registration order is
// preserved for prompt generation.
func NewRegistry(ts ...*Tool) *Registry {
	r := &Registry{tools: make(map[string]*Tool, len(ts))}
	for _, t := range ts {
		if _, dup := r.tools[t.Name]; dup {
			continue
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Descriptions returns each tool's name and description in registration
// order, for inclusion in the reasoning prompt.
func (r *Registry) Descriptions() []string {
	descs := make([]string, 0, len(r.order))
	for _, name := range r.order {
		descs = append(descs, fmt.Sprintf("%s: %s", name, r.tools[name].Description))
	}
	return descs
}

// Invoke validates args and runs the named tool. Validation failures return
// FailureInvalidArgs without executing the strategy; unknown names return
// FailureNotFound; strategy errors return FailureExecution.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) (Payload, error) {
	t, ok := r.tools[name]
	if !ok {
		return Payload{}, &Failure{Kind: FailureNotFound, Err: fmt.Errorf("unknown tool %q", name)}
	}
	if t.Validate != nil {
		if err := t.Validate(args); err != nil {
			return Payload{}, &Failure{Kind: FailureInvalidArgs, Err: err}
		}
	}
	payload, err := t.Run(ctx, args)
	if err != nil {
		return Payload{}, &Failure{Kind: FailureExecution, Err: err}
	}
	return payload, nil
}

// maxLimit bounds the per-tool result limit.
const maxLimit = 50

var errMissingArg = errors.New("missing required argument")

func stringArg(args Args, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: %s", errMissingArg, key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", key)
	}
	return s, nil
}

// intArg accepts float64 because JSON numbers decode that way.
func intArg(args Args, key string, required bool) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("%w: %s", errMissingArg, key)
		}
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %s must be a number", key)
	}
}

func limitArg(args Args) (int, error) {
	limit, err := intArg(args, "limit", false)
	if err != nil {
		return 0, err
	}
	if limit < 0 || limit > maxLimit {
		return 0, fmt.Errorf("limit must be between 0 and %d", maxLimit)
	}
	return limit, nil
}
