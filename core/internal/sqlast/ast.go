// Package sqlast is a small relational algebra tree plus a renderer that
// turns it into SQL text for a concrete backend. It covers exactly what
// graph-query emission needs: aliased tables, inner and left outer joins,
// common table expressions (plain and recursive) and a closed set of
// scalar expressions.
package sqlast

import (
	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
)

type Expr interface {
	isExpr()
}

// Col is a column reference through a table or CTE alias.
type Col struct {
	Table string
	Name  string
}

// Bind is a query parameter. List marks parameters that bind a collection
// and expand at execution time.
type Bind struct {
	Name string
	Type string
	List bool
}

// Lit is raw SQL text spliced into the query, used only for
// compiler-generated constants.
type Lit struct {
	Raw string
}

// Str is a single-quoted string constant.
type Str struct {
	Val string
}

type Binary struct {
	Op    dialect.Op
	Left  Expr
	Right Expr
}

type And struct {
	Exprs []Expr
}

type Or struct {
	Exprs []Expr
}

type Not struct {
	Expr Expr
}

type Concat struct {
	Parts []Expr
}

// CastText casts an expression to the backend's text type.
type CastText struct {
	Expr Expr
}

func (Col) isExpr()      {}
func (Bind) isExpr()     {}
func (Lit) isExpr()      {}
func (Str) isExpr()      {}
func (Binary) isExpr()   {}
func (And) isExpr()      {}
func (Or) isExpr()       {}
func (Not) isExpr()      {}
func (Concat) isExpr()   {}
func (CastText) isExpr() {}

type JoinKind int8

const (
	JoinInner JoinKind = iota
	JoinLeft
)

type FromItem interface {
	isFromItem()
}

// TableRef is a physical table under an alias.
type TableRef struct {
	Schema string
	Name   string
	Alias  string
}

// CTERef references a previously declared common table expression.
type CTERef struct {
	Name string
}

type Join struct {
	Left  FromItem
	Kind  JoinKind
	Right FromItem
	On    Expr
}

func (TableRef) isFromItem() {}
func (CTERef) isFromItem()   {}
func (*Join) isFromItem()    {}

// SelectCol is one projected column, optionally aliased.
type SelectCol struct {
	Expr  Expr
	Alias string
}

type Select struct {
	Distinct bool
	Cols     []SelectCol
	From     FromItem
	Where    Expr
}

// CTE is one WITH-clause entry. Recursive CTEs carry an anchor and a step
// term joined by a combinator, plain ones a single body.
type CTE struct {
	Name       string
	Recursive  bool
	Combinator dialect.Combinator
	Anchor     *Select
	Step       *Select
	Body       *Select
}

// Query is a full statement: the ordered CTE chain and the outer select.
type Query struct {
	CTEs []*CTE
	Root *Select
}
