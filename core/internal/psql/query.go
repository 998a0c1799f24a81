// Package psql emits a single relational query from a lowered graph-query
// tree. Each materialization unit (the root scope plus every recursive
// scope) flattens its non-recursive subtree into one joined FROM clause,
// becomes a common table expression, and recursive scopes additionally get
// a bounded, cycle-safe recursive CTE joined in front of their own.
package psql

import (
	"bytes"

	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

const (
	depthColumn = "__depth"
	pathColumn  = "__path"
)

type Config struct {
	Vars                map[string]string
	DBType              string
	DBVersion           int
	RecursionCombinator string
}

// ColInfo describes one column of the result set.
type ColInfo struct {
	Name string
	Type string
}

// Metadata is what a caller needs besides the SQL text: the parameters in
// binding order and the shape of the result set.
type Metadata struct {
	params []sqlast.Param
	cols   []ColInfo
}

func (md Metadata) Params() []sqlast.Param {
	return md.params
}

func (md Metadata) Columns() []ColInfo {
	return md.cols
}

type Compiler struct {
	schema *sdata.DBSchema
	d      dialect.Dialect
	comb   dialect.Combinator
	svars  map[string]string
}

// NewCompiler builds a compiler for one backend. A recursion combinator the
// backend cannot render is rejected here, before any query is compiled.
func NewCompiler(schema *sdata.DBSchema, conf Config) (*Compiler, error) {
	d := dialect.New(conf.DBType, conf.DBVersion)

	comb := d.DefaultCombinator()
	if conf.RecursionCombinator != "" {
		v, err := dialect.ParseCombinator(conf.RecursionCombinator)
		if err != nil {
			return nil, err
		}
		comb = v
	}
	if !d.SupportsCombinator(comb) {
		return nil, &dialect.CapabilityError{
			Backend: d.Name(),
			Feature: "recursion combinator " + comb.String(),
		}
	}

	return &Compiler{
		schema: schema,
		d:      d,
		comb:   comb,
		svars:  conf.Vars,
	}, nil
}

func (co *Compiler) Dialect() dialect.Dialect {
	return co.d
}

// Compile writes the SQL for one query into w. The qcode is treated as
// read-only; everything compilation mutates lives in a context owned by
// this call, so one compiler can serve concurrent compilations.
func (co *Compiler) Compile(w *bytes.Buffer, qc *qcode.QCode) (Metadata, error) {
	c := co.newContext(qc)
	if _, err := c.compileNode(qc.Root, nil, nil); err != nil {
		return Metadata{}, err
	}

	params, err := sqlast.Render(w, co.d, c.query)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{params: params, cols: c.resultCols}, nil
}

type outputField struct {
	qcode.OutputField
	renamed bool
}

// recursionLink carries the pair of columns that stitch a recursive scope
// to its parent materialization: in is projected by the parent's CTE,
// out by the recursive scope's.
type recursionLink struct {
	in       sqlast.Col
	inType   string
	out      sqlast.Col
	outAlias string
}

type compilerContext struct {
	*Compiler
	qc *qcode.QCode

	selectable    map[string]selectable
	fromClause    map[string]sqlast.FromItem
	filters       map[string][]qcode.Filter
	outputs       map[string][]outputField
	tags          map[string][]qcode.TagField
	renames       map[string]map[string]string
	recursions    map[string][]*qcode.Node
	recursionCols map[string]*recursionLink
	tagDefs       map[string]qcode.TagField

	ctes       []*sqlast.CTE
	query      *sqlast.Query
	resultCols []ColInfo

	aliasID int32
	cteID   int32
	rcteID  int32
	linkID  int32
	tagID   int32
}

func (co *Compiler) newContext(qc *qcode.QCode) *compilerContext {
	c := &compilerContext{
		Compiler:      co,
		qc:            qc,
		selectable:    map[string]selectable{},
		fromClause:    map[string]sqlast.FromItem{},
		filters:       make(map[string][]qcode.Filter, len(qc.Filters)),
		outputs:       make(map[string][]outputField, len(qc.Outputs)),
		tags:          make(map[string][]qcode.TagField, len(qc.Tags)),
		renames:       map[string]map[string]string{},
		recursions:    map[string][]*qcode.Node{},
		recursionCols: map[string]*recursionLink{},
		tagDefs:       map[string]qcode.TagField{},
	}
	for path, fs := range qc.Filters {
		c.filters[path] = append([]qcode.Filter{}, fs...)
	}
	for path, outs := range qc.Outputs {
		ofs := make([]outputField, len(outs))
		for i, of := range outs {
			ofs[i] = outputField{OutputField: of}
		}
		c.outputs[path] = ofs
	}
	for path, tfs := range qc.Tags {
		c.tags[path] = append([]qcode.TagField{}, tfs...)
		for _, tf := range tfs {
			c.tagDefs[tf.Name] = tf
		}
	}
	var seed func(n *qcode.Node)
	seed = func(n *qcode.Node) {
		if len(n.Recursions) != 0 {
			c.recursions[n.PathKey()] = append([]*qcode.Node{}, n.Recursions...)
		}
		for _, ch := range n.Children {
			seed(ch)
		}
		for _, rn := range n.Recursions {
			seed(rn)
		}
	}
	seed(qc.Root)
	return c
}

// compileNode converts one materialization unit. For recursive scopes,
// linkIn is the parent CTE's column the recursion attaches to and outerCTE
// the parent CTE itself; the returned column is the one the parent joins
// back against.
func (c *compilerContext) compileNode(n *qcode.Node, linkIn *sqlast.Col, outerCTE *cteSel) (*sqlast.Col, error) {
	visited, err := c.flattenNode(n)
	if err != nil {
		return nil, err
	}

	if err := c.compileRecursion(n, linkIn, outerCTE); err != nil {
		return nil, err
	}

	sel, cols, err := c.buildQuery(n, false)
	if err != nil {
		return nil, err
	}
	cte := c.wrapCTE(n, sel, cols, visited)

	if err := c.joinRecursions(n, cte); err != nil {
		return nil, err
	}

	if n.Kind == qcode.BlockRoot {
		final, resultCols, err := c.buildQuery(n, true)
		if err != nil {
			return nil, err
		}
		c.resultCols = resultCols
		c.query = &sqlast.Query{CTEs: c.ctes, Root: final}
		return nil, nil
	}

	link := c.recursionCols[n.PathKey()]
	if link == nil || link.outAlias == "" {
		return nil, internalErrorf("recursive scope %s compiled without link columns", n.PathKey())
	}
	out, _, ok := cte.Column(link.outAlias)
	if !ok {
		return nil, internalErrorf("link column %s missing from materialized scope %s", link.outAlias, n.PathKey())
	}
	return &out, nil
}

// wrapCTE materializes a unit's select and repoints every scope flattened
// into it at the new CTE; their columns are frozen from here on.
func (c *compilerContext) wrapCTE(n *qcode.Node, sel *sqlast.Select, cols []ColInfo, visited []string) *cteSel {
	name := c.newCTEName()
	c.ctes = append(c.ctes, &sqlast.CTE{Name: name, Body: sel})

	cs := &cteSel{name: name, cols: cols}
	c.fromClause[n.PathKey()] = sqlast.CTERef{Name: name}
	for _, path := range visited {
		c.selectable[path] = cs
	}
	return cs
}
