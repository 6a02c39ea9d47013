package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/sharegraph/dialect"
)

// Issue is a problem found while comparing an existing table with the
// table the store expects.
type Issue struct {
	Table   string
	Column  string
	Message string
}

func (i *Issue) Error() string {
	if i.Column != "" {
		return fmt.Sprintf("%s.%s: %s", i.Table, i.Column, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Table, i.Message)
}

// Plan is the outcome of comparing the database with the expected tables.
type Plan struct {
	// Create lists the tables that do not exist yet.
	Create []*atlas.Table
	// Errors are incompatibilities that block the migration.
	Errors []*Issue
	// Warnings are differences the store can live with.
	Warnings []*Issue
}

// Err joins the blocking issues, or returns nil.
func (p *Plan) Err() error {
	if len(p.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(p.Errors))
	for i, e := range p.Errors {
		errs[i] = e
	}
	return fmt.Errorf("store: incompatible tables: %w", errors.Join(errs...))
}

// String returns a human-readable summary of the plan.
func (p *Plan) String() string {
	var b strings.Builder
	for _, t := range p.Create {
		fmt.Fprintf(&b, "create %s\n", t.Name)
	}
	for _, e := range p.Errors {
		fmt.Fprintf(&b, "error %s\n", e)
	}
	for _, w := range p.Warnings {
		fmt.Fprintf(&b, "warning %s\n", w)
	}
	if b.Len() == 0 {
		return "up to date"
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Desired returns the expected definition of every table.
func (s *Store) Desired() []*atlas.Table {
	tables := s.Tables()
	out := make([]*atlas.Table, len(tables))
	for i, name := range tables {
		out[i] = s.table(name)
	}
	return out
}

func (s *Store) table(name string) *atlas.Table {
	var id, typ, payload *atlas.Column
	switch s.drv.Dialect() {
	case dialect.SQLite:
		id = atlas.NewStringColumn(ColumnID, "text")
		typ = atlas.NewStringColumn(ColumnType, "text")
		payload = atlas.NewJSONColumn(ColumnPayload, "json")
	case dialect.Postgres:
		id = atlas.NewStringColumn(ColumnID, "character varying", atlas.StringSize(255))
		typ = atlas.NewStringColumn(ColumnType, "character varying", atlas.StringSize(255))
		payload = atlas.NewJSONColumn(ColumnPayload, "jsonb")
	default:
		id = atlas.NewStringColumn(ColumnID, "varchar", atlas.StringSize(255))
		typ = atlas.NewStringColumn(ColumnType, "varchar", atlas.StringSize(255))
		payload = atlas.NewJSONColumn(ColumnPayload, "json")
	}
	t := atlas.NewTable(name).AddColumns(id, typ, payload)
	return t.SetPrimaryKey(atlas.NewPrimaryKey(id))
}

// Plan inspects the database and compares it with the expected tables.
func (s *Store) Plan(ctx context.Context) (*Plan, error) {
	drv, err := s.atlas()
	if err != nil {
		return nil, err
	}
	current, err := drv.InspectSchema(ctx, "", &atlas.InspectOptions{
		Mode:   atlas.InspectTables,
		Tables: s.Tables(),
	})
	if err != nil {
		return nil, fmt.Errorf("store: inspect: %w", err)
	}
	return Compare(current.Tables, s.Desired()), nil
}

// Migrate creates the missing tables. It fails without changing anything
// if an existing table is incompatible.
func (s *Store) Migrate(ctx context.Context) error {
	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}
	for _, w := range plan.Warnings {
		s.logger.WarnContext(ctx, "table differs from the expected definition", "issue", w.Error())
	}
	if err := plan.Err(); err != nil {
		return err
	}
	if len(plan.Create) == 0 {
		return nil
	}
	changes := make([]atlas.Change, len(plan.Create))
	for i, t := range plan.Create {
		changes[i] = &atlas.AddTable{T: t, Extra: []atlas.Clause{&atlas.IfNotExists{}}}
	}
	drv, err := s.atlas()
	if err != nil {
		return err
	}
	if err := drv.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	s.logger.InfoContext(ctx, "created tables", "count", len(changes))
	return nil
}

func (s *Store) atlas() (migrate.Driver, error) {
	var (
		drv migrate.Driver
		err error
	)
	switch db := s.drv.DB(); s.drv.Dialect() {
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	default:
		err = fmt.Errorf("unsupported dialect %q", s.drv.Dialect())
	}
	if err != nil {
		return nil, fmt.Errorf("store: open migration driver: %w", err)
	}
	return drv, nil
}

// Compare reports how the current tables differ from the desired ones.
// Tables in current that are not desired are ignored.
func Compare(current, desired []*atlas.Table) *Plan {
	plan := &Plan{}
	byName := make(map[string]*atlas.Table, len(current))
	for _, t := range current {
		byName[t.Name] = t
	}
	for _, want := range desired {
		have, ok := byName[want.Name]
		if !ok {
			plan.Create = append(plan.Create, want)
			continue
		}
		compareTable(have, want, plan)
	}
	return plan
}

func compareTable(have, want *atlas.Table, plan *Plan) {
	for _, wc := range want.Columns {
		hc, ok := have.Column(wc.Name)
		switch {
		case !ok:
			plan.Errors = append(plan.Errors, &Issue{Table: have.Name, Column: wc.Name, Message: "column is missing"})
		case hc.Type == nil || !compatible(hc.Type.Type, wc.Type.Type):
			plan.Errors = append(plan.Errors, &Issue{Table: have.Name, Column: wc.Name, Message: fmt.Sprintf("incompatible type %s", typeName(hc))})
		case hc.Type != nil && hc.Type.Null && !wc.Type.Null:
			plan.Warnings = append(plan.Warnings, &Issue{Table: have.Name, Column: wc.Name, Message: "column is nullable"})
		}
	}
	for _, hc := range have.Columns {
		if _, ok := want.Column(hc.Name); !ok && hc.Type != nil && !hc.Type.Null && hc.Default == nil {
			plan.Errors = append(plan.Errors, &Issue{Table: have.Name, Column: hc.Name, Message: "unknown NOT NULL column without default"})
		}
	}
	if have.PrimaryKey == nil || len(have.PrimaryKey.Parts) != 1 || have.PrimaryKey.Parts[0].C == nil ||
		have.PrimaryKey.Parts[0].C.Name != ColumnID {
		plan.Errors = append(plan.Errors, &Issue{Table: have.Name, Column: ColumnID, Message: "column is not the primary key"})
	}
}

// compatible reports whether values of the want type can be stored in a
// column of the have type. JSON payloads may live in text columns.
func compatible(have, want atlas.Type) bool {
	switch want.(type) {
	case *atlas.StringType:
		_, ok := have.(*atlas.StringType)
		return ok
	case *atlas.JSONType:
		switch have.(type) {
		case *atlas.JSONType, *atlas.StringType:
			return true
		}
		return false
	default:
		return fmt.Sprintf("%T", have) == fmt.Sprintf("%T", want)
	}
}

func typeName(c *atlas.Column) string {
	if c.Type == nil {
		return "unknown"
	}
	if c.Type.Raw != "" {
		return c.Type.Raw
	}
	return fmt.Sprintf("%T", c.Type.Type)
}
