// Package status defines the uniform result and error surface threaded
// through the analyzer and executor, per spec 4.7/7.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error by the phase in which it occurred.
type Kind int

const (
	Lex Kind = iota
	Parse
	Analysis
	Constraint
	Txn
	Storage
	Protocol
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "Lex"
	case Parse:
		return "Parse"
	case Analysis:
		return "Analysis"
	case Constraint:
		return "Constraint"
	case Txn:
		return "Txn"
	case Storage:
		return "Storage"
	case Protocol:
		return "Protocol"
	}
	return "Unknown"
}

// Error is the error type returned by every package in the pipeline. Its
// message is always prefixed with its Kind so clients can see which
// phase rejected the query.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an underlying error, keeping the cause
// recoverable via Unwrap (errors.Is/errors.As); used for kv.Engine
// failures bubbling up as Storage errors.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Row is one row of a result set. The executor stores each column value
// as a datum.Datum held in an interface{}; readers assert it back.
type Row []interface{}

// ColumnDesc describes one column of a result set for the wire 'T'
// message: its name and its datum type tag.
type ColumnDesc struct {
	Name     string
	TypeTag  byte
}

// ResultSet is one (columns, rows) pair, used for a statement's extra
// result sets beyond its first (DESCRIBE's index list, spec 4.6).
type ResultSet struct {
	Columns []ColumnDesc
	Rows    []Row
}

// Result is the outcome of one statement: either an error, or a
// (possibly empty) result set plus a human-readable command-complete
// summary. Extra carries any result sets beyond the first, each sent
// as its own 'T'/'D'* sequence ahead of the trailing 'C'.
type Result struct {
	Columns []ColumnDesc
	Rows    []Row
	Extra   []ResultSet
	Summary string
	Err     *Error
}

func Ok(summary string) *Result { return &Result{Summary: summary} }

func OkRows(cols []ColumnDesc, rows []Row, summary string) *Result {
	return &Result{Columns: cols, Rows: rows, Summary: summary}
}

// OkManyRows builds a Result whose first result set is (cols, rows)
// and whose subsequent result sets are extra, each rendered as its own
// 'T'/'D'* sequence ahead of the trailing 'C' (DESCRIBE's attribute and
// index result sets, spec 4.6).
func OkManyRows(cols []ColumnDesc, rows []Row, extra []ResultSet, summary string) *Result {
	return &Result{Columns: cols, Rows: rows, Extra: extra, Summary: summary}
}

func Fail(err *Error) *Result { return &Result{Err: err} }

func (r *Result) Failed() bool { return r.Err != nil }
