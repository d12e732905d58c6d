package model

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or ambiguous column generator, a bad
// row-count string or any other invalid setting.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// SchemaMismatchError reports an ingest header whose column count differs
// from the target table.
type SchemaMismatchError struct {
	Table    QualifiedName
	Expected int
	Actual   int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("column count mismatch in CSV stream (%d) vs table schema %s (%d)",
		e.Actual, e.Table, e.Expected)
}

// CycleDetectedError carries the tables left over after a topological sort.
type CycleDetectedError struct {
	Tables []QualifiedName
}

func (e *CycleDetectedError) Error() string {
	names := make([]string, len(e.Tables))
	for i, t := range e.Tables {
		names[i] = t.String()
	}
	return fmt.Sprintf("foreign key cycle detected involving tables: %s", strings.Join(names, ", "))
}

type EvaluationKind string

const (
	UndefinedFunction EvaluationKind = "undefined function"
	TypeMismatch      EvaluationKind = "type mismatch"
	SyntaxError       EvaluationKind = "syntax error"
)

// EvaluationError reports a failure to evaluate a column expression.
type EvaluationError struct {
	Kind    EvaluationKind
	Expr    string
	Message string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s in expression %q: %s", e.Kind, e.Expr, e.Message)
}

// DataAccessError wraps a database failure with its fault class.
type DataAccessError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *DataAccessError) Error() string {
	class := "non-transient"
	if e.Transient {
		class = "transient"
	}
	return fmt.Sprintf("%s data access error during %s: %v", class, e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// IOError reports a stream failure. Row is the last row written successfully.
type IOError struct {
	Row int64
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("I/O error after row %d: %v", e.Row, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ErrEvaluation creates an EvaluationError of the given kind.
func ErrEvaluation(kind EvaluationKind, expr, format string, args ...interface{}) *EvaluationError {
	return &EvaluationError{Kind: kind, Expr: expr, Message: fmt.Sprintf(format, args...)}
}

// ErrQuery wraps a failed catalog read.
func ErrQuery(err error) *DataAccessError {
	return &DataAccessError{Op: "query", Err: err}
}
