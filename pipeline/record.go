package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Record is one harvested record, already translated into a flattened
// JSON-LD node list.
type Record struct {
	ID    string           `json:"id" msgpack:"id"`
	Nodes []map[string]any `json:"@graph" msgpack:"nodes"`
}

// Result is the outcome of processing one record.
type Result struct {
	RecordID string
	// Nodes holds the regulated graph in dependency order.
	Nodes    []map[string]any
	Merged   int
	Duration time.Duration
	// Err is set when the record was rejected.
	Err error
}

// OK reports whether the record was processed without error.
func (r *Result) OK() bool { return r.Err == nil }

// Persister stores the regulated nodes of one record. Nodes arrive in
// dependency order: every node follows the nodes it references.
type Persister interface {
	Persist(ctx context.Context, nodes []map[string]any) error
}

// PersisterFunc adapts a function to the Persister interface.
type PersisterFunc func(ctx context.Context, nodes []map[string]any) error

// Persist calls f(ctx, nodes).
func (f PersisterFunc) Persist(ctx context.Context, nodes []map[string]any) error {
	return f(ctx, nodes)
}

// DecodeRecord reads a record from a JSON-LD document: either a node list
// or an object holding one under @graph.
func DecodeRecord(id string, r io.Reader) (Record, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("pipeline: decode record %q: %w", id, err)
	}
	rec := Record{ID: id}
	var err error
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(raw, &rec)
		rec.ID = id
	} else {
		err = json.Unmarshal(raw, &rec.Nodes)
	}
	if err != nil {
		return Record{}, fmt.Errorf("pipeline: decode record %q: %w", id, err)
	}
	return rec, nil
}
