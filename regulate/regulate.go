// Package regulate normalizes an ingested graph before it is persisted:
// duplicate entities are merged, every node is validated against the
// schema, and the nodes are ordered so that each one follows the nodes it
// points at.
package regulate

import (
	"fmt"
	"log/slog"

	"github.com/syssam/sharegraph/graph"
	"github.com/syssam/sharegraph/toposort"
)

// Regulator runs deduplication, validation and ordering over a graph.
// It holds no per-graph state and is safe for concurrent use.
type Regulator struct {
	identity Identity
	validate []ValidateOption
	logger   *slog.Logger
}

// Option configures a Regulator.
type Option func(*Regulator)

// WithIdentity sets the identity fields used for deduplication.
func WithIdentity(id Identity) Option {
	return func(r *Regulator) {
		r.identity = id
	}
}

// WithValidateOptions sets the options passed to Validate.
func WithValidateOptions(opts ...ValidateOption) Option {
	return func(r *Regulator) {
		r.validate = append(r.validate, opts...)
	}
}

// WithLogger sets the logger. Warnings are logged at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Regulator) {
		r.logger = l
	}
}

// New returns a Regulator using DefaultIdentity unless told otherwise.
func New(opts ...Option) *Regulator {
	r := &Regulator{
		identity: DefaultIdentity(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Regulate deduplicates and validates g in place and returns its nodes in
// dependency order. Validation errors are returned as one error matching
// sharegraph.ErrInvalidRecord; a dependency cycle as a
// *sharegraph.CycleError.
func (r *Regulator) Regulate(g *graph.Graph) ([]*graph.Node, error) {
	merged, err := Deduplicate(g, r.identity)
	if err != nil {
		return nil, fmt.Errorf("regulate: deduplicate: %w", err)
	}
	if merged > 0 {
		r.logger.Debug("merged duplicate nodes", "merged", merged, "nodes", g.Len())
	}
	result := Validate(g, r.validate...)
	for _, w := range result.Warnings {
		r.logger.Warn("validation warning", "node", w.NodeID, "type", w.Type, "field", w.Field, "message", w.Message)
	}
	if result.HasErrors() {
		return nil, result.Err()
	}
	nodes, err := toposort.SortFunc(g.Nodes(), Dependencies, (*graph.Node).ID)
	if err != nil {
		return nil, fmt.Errorf("regulate: order nodes: %w", err)
	}
	return nodes, nil
}
