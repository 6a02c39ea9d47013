package store

import (
	"errors"
	"fmt"
	"strings"
)

// ConstraintKind classifies a rejected write.
type ConstraintKind uint8

// Constraint kinds.
const (
	NoConstraint ConstraintKind = iota
	UniqueConstraint
	NotNullConstraint
	CheckConstraint
)

func (k ConstraintKind) String() string {
	switch k {
	case UniqueConstraint:
		return "unique"
	case NotNullConstraint:
		return "not null"
	case CheckConstraint:
		return "check"
	default:
		return "none"
	}
}

// WriteError is returned by Persist when a node could not be written.
type WriteError struct {
	Table string
	ID    string
	Kind  ConstraintKind
	Err   error
}

func (e *WriteError) Error() string {
	if e.Kind != NoConstraint {
		return fmt.Sprintf("store: write %s %q: %s constraint: %v", e.Table, e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("store: write %s %q: %v", e.Table, e.ID, e.Err)
}

// Unwrap returns the driver error.
func (e *WriteError) Unwrap() error { return e.Err }

func newWriteError(table, id string, err error) *WriteError {
	return &WriteError{Table: table, ID: id, Kind: constraintOf(err), Err: err}
}

// IsConstraintError reports whether err is a write rejected by a
// database constraint.
func IsConstraintError(err error) bool {
	var e *WriteError
	if errors.As(err, &e) {
		return e.Kind != NoConstraint
	}
	return constraintOf(err) != NoConstraint
}

// Driver error shapes. pq.Error exposes its SQLSTATE through SQLState,
// mysql.MySQLError carries a Number field and is matched by message.
type (
	sqlStater interface{ SQLState() string }
	coder     interface{ Code() int }
)

// SQLSTATE codes of class 23.
var pgStates = map[string]ConstraintKind{
	"23505": UniqueConstraint,
	"23502": NotNullConstraint,
	"23514": CheckConstraint,
}

// Message fragments, checked when the driver error exposes no code.
var messages = []struct {
	fragment string
	kind     ConstraintKind
}{
	{"UNIQUE constraint failed", UniqueConstraint},
	{"NOT NULL constraint failed", NotNullConstraint},
	{"CHECK constraint failed", CheckConstraint},
	{"violates unique constraint", UniqueConstraint},
	{"violates not-null constraint", NotNullConstraint},
	{"violates check constraint", CheckConstraint},
	{"Error 1062", UniqueConstraint},
	{"Error 1048", NotNullConstraint},
	{"Error 3819", CheckConstraint},
}

// sqlite extended result codes.
var sqliteCodes = map[int]ConstraintKind{
	2067: UniqueConstraint,  // SQLITE_CONSTRAINT_UNIQUE
	1555: UniqueConstraint,  // SQLITE_CONSTRAINT_PRIMARYKEY
	1299: NotNullConstraint, // SQLITE_CONSTRAINT_NOTNULL
	275:  CheckConstraint,   // SQLITE_CONSTRAINT_CHECK
}

func constraintOf(err error) ConstraintKind {
	if err == nil {
		return NoConstraint
	}
	var st sqlStater
	if errors.As(err, &st) {
		if k, ok := pgStates[st.SQLState()]; ok {
			return k
		}
	}
	var c coder
	if errors.As(err, &c) {
		if k, ok := sqliteCodes[c.Code()]; ok {
			return k
		}
	}
	msg := err.Error()
	for _, m := range messages {
		if strings.Contains(msg, m.fragment) {
			return m.kind
		}
	}
	return NoConstraint
}
