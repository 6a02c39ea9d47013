package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/sharegraph/dialect"
	"github.com/syssam/sharegraph/dialect/sql"
	"github.com/syssam/sharegraph/graph"
	"github.com/syssam/sharegraph/schema"
)

// Column names shared by every table.
const (
	ColumnID      = "id"
	ColumnType    = "type"
	ColumnPayload = "payload"
)

// Store writes regulated nodes to one table per concrete type.
// It implements pipeline.Persister.
type Store struct {
	drv    *sql.Driver
	exec   dialect.Driver
	schema *schema.Schema
	tables map[string]string // folded concrete type -> table
	logger *slog.Logger
	stats  *sql.QueryStats
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithQueryStats records statement statistics for every write.
func WithQueryStats(opts ...sql.StatsOption) Option {
	return func(s *Store) {
		sd := sql.NewStatsDriver(s.drv, opts...)
		s.exec = sd
		s.stats = sd.QueryStats()
	}
}

// New returns a Store over drv for the concrete types of sch.
func New(drv *sql.Driver, sch *schema.Schema, opts ...Option) (*Store, error) {
	if !dialect.Supported(drv.Dialect()) {
		return nil, fmt.Errorf("store: unsupported dialect %q", drv.Dialect())
	}
	s := &Store{
		drv:    drv,
		exec:   drv,
		schema: sch,
		tables: make(map[string]string),
		logger: slog.Default(),
	}
	for _, c := range sch.ConcreteTypes() {
		s.tables[schema.Fold(c)] = TableName(c)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TableName returns the table that stores nodes of the given concrete type.
func TableName(concreteType string) string {
	return inflect.Underscore(inflect.Pluralize(concreteType))
}

// Table returns the table for a node of the given type name.
func (s *Store) Table(typeName string) (string, error) {
	t, err := s.schema.Type(typeName)
	if err != nil {
		return "", err
	}
	return s.tables[schema.Fold(t.ConcreteType)], nil
}

// Tables returns every table in concrete type declaration order.
func (s *Store) Tables() []string {
	names := s.schema.ConcreteTypes()
	tables := make([]string, len(names))
	for i, c := range names {
		tables[i] = s.tables[schema.Fold(c)]
	}
	return tables
}

// QueryStats returns the statement statistics, or nil if WithQueryStats
// was not given.
func (s *Store) QueryStats() *sql.QueryStats {
	return s.stats
}

// Persist upserts nodes in one transaction. Nodes are written in the
// given order, which is the dependency order produced by the regulator.
func (s *Store) Persist(ctx context.Context, nodes []map[string]any) (err error) {
	rows := make([]row, 0, len(nodes))
	for _, n := range nodes {
		r, err := s.row(n)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}
	tx, err := s.exec.Tx(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				err = errors.Join(err, fmt.Errorf("store: rollback: %w", rerr))
			}
		}
	}()
	for _, r := range rows {
		if err := tx.Exec(ctx, s.upsert(r.table), []any{r.id, r.typ, r.payload}, nil); err != nil {
			return newWriteError(r.table, r.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.logger.DebugContext(ctx, "persisted nodes", "count", len(rows))
	return nil
}

// Get returns the stored payload of a node, or nil if it is not stored.
func (s *Store) Get(ctx context.Context, typeName, id string) (map[string]any, error) {
	nodes, err := s.GetMany(ctx, typeName, []string{id})
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// GetMany returns the stored payloads of the given ids of one concrete
// type. The result lines up with ids; ids that are not stored get nil.
func (s *Store) GetMany(ctx context.Context, typeName string, ids []string) ([]map[string]any, error) {
	table, err := s.Table(typeName)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s)",
		s.quote(ColumnID), s.quote(ColumnPayload), s.quote(table), s.quote(ColumnID),
		strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "))
	var rows sql.Rows
	if err := s.exec.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("store: get %s: %w", table, err)
	}
	defer rows.Close()
	found := make(map[string]map[string]any, len(ids))
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", table, err)
		}
		var node map[string]any
		if err := json.Unmarshal([]byte(payload), &node); err != nil {
			return nil, fmt.Errorf("store: decode %s %q: %w", table, id, err)
		}
		found[id] = node
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get %s: %w", table, err)
	}
	for i, id := range ids {
		out[i] = found[id]
	}
	return out, nil
}

type row struct {
	table, id, typ, payload string
}

func (s *Store) row(n map[string]any) (row, error) {
	id, _ := n[graph.KeyID].(string)
	typ, _ := n[graph.KeyType].(string)
	if id == "" || typ == "" {
		return row{}, fmt.Errorf("store: node without %s or %s", graph.KeyID, graph.KeyType)
	}
	table, err := s.Table(typ)
	if err != nil {
		return row{}, err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return row{}, fmt.Errorf("store: encode %q: %w", id, err)
	}
	return row{table: table, id: id, typ: typ, payload: string(payload)}, nil
}

func (s *Store) quote(ident string) string {
	return sql.Quote(s.drv.Dialect(), ident)
}

func (s *Store) upsert(table string) string {
	var (
		b          strings.Builder
		id, t, pay = s.quote(ColumnID), s.quote(ColumnType), s.quote(ColumnPayload)
	)
	fmt.Fprintf(&b, "INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?) ", s.quote(table), id, t, pay)
	if s.drv.Dialect() == dialect.MySQL {
		fmt.Fprintf(&b, "ON DUPLICATE KEY UPDATE %s = VALUES(%s), %s = VALUES(%s)", t, t, pay, pay)
	} else {
		fmt.Fprintf(&b, "ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s", id, t, t, pay, pay)
	}
	return b.String()
}
