package regulate

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/graph"
	"github.com/syssam/sharegraph/schema"
)

// ValidationError reports one problem with one node.
type ValidationError struct {
	NodeID  string
	Type    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s(%s).%s: %s", e.Type, e.NodeID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s(%s): %s", e.Type, e.NodeID, e.Message)
}

// Is reports whether the target matches sharegraph.ErrInvalidRecord.
func (e *ValidationError) Is(target error) bool {
	return target == sharegraph.ErrInvalidRecord
}

// ValidationResult holds the results of graph validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the errors as a single error, or nil.
func (r *ValidationResult) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return sharegraph.NewAggregateError(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures graph validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowMissingRequired bool
	allowUnknownAttrs    bool
}

// AllowMissingRequired reports missing required fields as warnings.
func AllowMissingRequired() ValidateOption {
	return func(c *validateConfig) {
		c.allowMissingRequired = true
	}
}

// AllowUnknownAttributes reports attributes the schema does not know as
// warnings.
func AllowUnknownAttributes() ValidateOption {
	return func(c *validateConfig) {
		c.allowUnknownAttrs = true
	}
}

// Validate checks every node of g against the schema of g. Attribute
// values must match their data type and format. Required attributes must
// be set and required many-to-one relations must have an edge.
//
// Example:
//
//	result := regulate.Validate(g)
//	if result.HasErrors() {
//	    return result.Err()
//	}
func Validate(g *graph.Graph, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	s := g.Schema()
	for _, n := range g.Nodes() {
		validateNode(s, n, cfg, result)
	}
	return result
}

func validateNode(s *schema.Schema, n *graph.Node, cfg *validateConfig, result *ValidationResult) {
	report := func(field, msg string, lenient bool) {
		e := &ValidationError{NodeID: n.ID(), Type: n.Type(), Field: field, Message: msg}
		if lenient {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	attrs := n.Attrs()
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		f, err := s.Field(n.Type(), k)
		if err != nil {
			report(k, "unknown attribute", cfg.allowUnknownAttrs)
			continue
		}
		a, ok := f.(*schema.Attribute)
		if !ok {
			report(k, "relation stored as an attribute", false)
			continue
		}
		if v := attrs[k]; v != nil {
			if msg := checkValue(a, v); msg != "" {
				report(a.Name, msg, false)
			}
		}
	}
	out := n.Graph().NamedOutEdges(n.ID())
	for _, name := range slices.Sorted(maps.Keys(out)) {
		r, err := s.Relation(n.Type(), name)
		if err != nil {
			report(name, "unknown relation", false)
			continue
		}
		if dst := out[name]; !s.SameConcreteType(dst.Type(), r.RelatedConcreteType) {
			report(name, fmt.Sprintf("%s is not a %s", dst, r.RelatedConcreteType), false)
		}
	}
	for _, f := range s.Fields(n.ConcreteType()) {
		if !f.IsRequired() {
			continue
		}
		switch f := f.(type) {
		case *schema.Attribute:
			if attrs[f.Name] == nil {
				report(f.Name, "required attribute is missing", cfg.allowMissingRequired)
			}
		case *schema.Relation:
			if f.Shape == schema.ManyToOne && out[f.Name] == nil {
				report(f.Name, "required relation is missing", cfg.allowMissingRequired)
			}
		}
	}
}

func checkValue(a *schema.Attribute, v any) string {
	switch a.DataType {
	case schema.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", v)
		}
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("expected string, got %T", v)
		}
		if a.DataFormat == schema.FormatURI && !isAbsoluteURI(s) {
			return fmt.Sprintf("%q is not an absolute uri", s)
		}
	case schema.TypeInteger:
		if !isInteger(v) {
			return fmt.Sprintf("expected integer, got %v", v)
		}
	case schema.TypeDatetime:
		switch v := v.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return fmt.Sprintf("%q is not an RFC 3339 datetime", v)
			}
		default:
			return fmt.Sprintf("expected datetime, got %T", v)
		}
	case schema.TypeObject:
		if reflect.TypeOf(v).Kind() != reflect.Map {
			return fmt.Sprintf("expected object, got %T", v)
		}
	}
	return ""
}

func isAbsoluteURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

func isInteger(v any) bool {
	switch v := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == math.Trunc(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v) == math.Trunc(float64(v))
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
