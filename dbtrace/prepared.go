package dbtrace

import (
	"fmt"
)

// Statement is the statement input of an intercepted call: either raw text
// or an opaque prepared-statement handle. A non-nil Handle takes precedence.
type Statement struct {
	Text   string
	Handle any
}

// Text returns a Statement holding raw SQL text.
func Text(sql string) Statement {
	return Statement{Text: sql}
}

// PreparedSource supplies the resolved SQL and name of a prepared statement.
// Host adapters implement it on their statement wrappers.
type PreparedSource interface {
	// PreparedSQL returns the SQL text the statement was prepared from.
	// ok is false when the text is not known.
	PreparedSQL() (sql string, ok bool)

	// PreparedStatementName returns the statement name, or "" if unnamed.
	PreparedStatementName() string
}

// Resolved is a statement after prepared-statement resolution.
type Resolved struct {
	Text         string
	PreparedName string
}

// ResolvePrepared picks the authoritative statement text.
//
// When stmt carries a handle and src can resolve it, the resolved SQL and
// statement name are used. Otherwise the raw text is used, falling back to
// the handle's string form.
func ResolvePrepared(stmt Statement, src PreparedSource) Resolved {
	if stmt.Handle == nil {
		return Resolved{Text: stmt.Text}
	}

	if src != nil {
		if sql, ok := src.PreparedSQL(); ok {
			return Resolved{Text: sql, PreparedName: src.PreparedStatementName()}
		}
	}

	if stmt.Text != "" {
		return Resolved{Text: stmt.Text}
	}
	return Resolved{Text: handleString(stmt.Handle)}
}

// handleString coerces an unresolved handle into its string form.
func handleString(h any) string {
	switch v := h.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case PreparedSource:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
