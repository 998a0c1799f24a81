// Package core compiles scoped graph-query trees into single relational
// queries. A Query names a root type and a tree of edge traversals over a
// Schema; Compile returns one SQL statement in which every scope became a
// common table expression, recursive scopes became bounded recursive CTEs,
// and the final SELECT carries exactly the requested output columns.
//
// Compilation is pure: no database connection is used or required. The
// returned parameters describe what the caller must bind when it executes
// the statement.
package core

import (
	"errors"
)

var errNoSchema = errors.New("no schema defined")

// GraphCompiler compiles queries against one schema for one database
// backend. It is safe for concurrent use; results for repeated trees are
// served from an internal cache unless disabled.
type GraphCompiler struct {
	gc *graphCompiler
}

// Result is one compiled query. Results may be shared across callers and
// must be treated as read-only.
type Result struct {
	// SQL is the complete statement text
	SQL string

	// Columns describes the result set, in select order
	Columns []ResultColumn

	// Params lists the values to bind, in placeholder order
	Params []Param
}

// ResultColumn is one column of the compiled query's result set.
type ResultColumn struct {
	Name string
	Type string
}

// Param is one runtime value the compiled query expects. List parameters
// bind a set of values for a membership filter.
type Param struct {
	Name string
	Type string
	List bool
}

// NewGraphCompiler creates the compiler for the given schema. A nil config
// uses the defaults: postgres, caching enabled, no preset variables.
func NewGraphCompiler(conf *Config, schema *Schema) (*GraphCompiler, error) {
	gc, err := newGraphCompiler(conf, schema)
	if err != nil {
		return nil, err
	}
	return &GraphCompiler{gc: gc}, nil
}

// Compile turns one query tree into SQL. Malformed trees are rejected
// before emission; schema-mapping failures carry the type, edge or field
// that could not be resolved.
func (g *GraphCompiler) Compile(q *Query) (*Result, error) {
	if q == nil {
		return nil, errors.New("no query defined")
	}
	return g.gc.compile(q)
}
