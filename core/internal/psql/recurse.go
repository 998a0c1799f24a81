package psql

import (
	"strconv"

	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

// compileRecursion builds the recursive CTE for a Recurse scope: a bounded
// transitive closure over the scope's own edge, anchored on the rows the
// outer CTE links in. The closure carries a depth counter for the bound
// and a path string of visited keys for cycle detection. The scope's FROM
// clause is then joined to the closure and back to the outer CTE.
func (c *compilerContext) compileRecursion(n *qcode.Node, linkIn *sqlast.Col, outerCTE *cteSel) error {
	if n.Kind != qcode.BlockRecurse {
		return nil
	}
	if linkIn == nil || outerCTE == nil {
		return internalErrorf("recursive scope %s compiled without an outer link", n.PathKey())
	}

	ti, err := c.nodeTable(n)
	if err != nil {
		return err
	}
	te, err := sdata.ResolveEdge(c.schema, ti, ti,
		n.EdgeName, c.nodeType(n), n.Direction == qcode.DirIn)
	if err != nil {
		return err
	}

	// The closure table is the scope's own table for a direct self edge,
	// the junction table for a many-to-many edge. out names the column a
	// step produces, in the column it consumes, base the scope column the
	// closure anchors on.
	var outName, inName, baseName string
	var rt sdata.DBTable
	switch te.Kind {
	case sdata.RelJunction:
		outName = te.InnerPair.Right.Col.Name
		inName = te.OuterPair.Right.Col.Name
		baseName = te.OuterPair.Left.Col.Name
		rt = te.Junction
	default:
		outName = te.Pair.Left.Col.Name
		inName = te.Pair.Right.Col.Name
		baseName = outName
		rt = ti
	}
	if n.Direction == qcode.DirIn {
		outName, inName = inName, outName
	}

	sel := c.selectable[n.PathKey()]
	base, _, ok := sel.Column(baseName)
	if !ok {
		return internalErrorf("recursion base column %s missing on scope %s", baseName, n.PathKey())
	}
	parentCol, _, ok := outerCTE.Column(linkIn.Name)
	if !ok {
		return internalErrorf("link column %s missing from outer materialization", linkIn.Name)
	}

	ta, ok := sel.(*tableAlias)
	if !ok {
		return internalErrorf("recursive scope %s already materialized", n.PathKey())
	}

	rcte := c.newRecursiveCTEName()
	rtAlias := c.newAlias(rt.Name)

	anchor := &sqlast.Select{
		Distinct: true,
		Cols: []sqlast.SelectCol{
			{Expr: base, Alias: outName},
			{Expr: base, Alias: inName},
			{Expr: sqlast.Lit{Raw: "0"}, Alias: depthColumn},
			{Expr: sqlast.Concat{Parts: []sqlast.Expr{
				sqlast.CastText{Expr: base},
				sqlast.Str{Val: ","},
			}}, Alias: pathColumn},
		},
		From: &sqlast.Join{
			Left:  sqlast.TableRef{Schema: ta.ti.Schema, Name: ta.ti.Name, Alias: ta.alias},
			Kind:  sqlast.JoinInner,
			Right: sqlast.CTERef{Name: outerCTE.name},
			On:    sqlast.Binary{Op: dialect.OpEquals, Left: base, Right: parentCol},
		},
	}

	stepOut := sqlast.Col{Table: rtAlias, Name: outName}
	step := &sqlast.Select{
		Cols: []sqlast.SelectCol{
			{Expr: stepOut},
			{Expr: sqlast.Col{Table: rcte, Name: inName}},
			{Expr: sqlast.Binary{
				Op:    dialect.OpAdd,
				Left:  sqlast.Col{Table: rcte, Name: depthColumn},
				Right: sqlast.Lit{Raw: "1"},
			}, Alias: depthColumn},
			{Expr: sqlast.Concat{Parts: []sqlast.Expr{
				sqlast.Col{Table: rcte, Name: pathColumn},
				sqlast.CastText{Expr: stepOut},
				sqlast.Str{Val: ","},
			}}, Alias: pathColumn},
		},
		From: &sqlast.Join{
			Left:  sqlast.TableRef{Schema: rt.Schema, Name: rt.Name, Alias: rtAlias},
			Kind:  sqlast.JoinInner,
			Right: sqlast.CTERef{Name: rcte},
			On: sqlast.Binary{
				Op:    dialect.OpEquals,
				Left:  sqlast.Col{Table: rtAlias, Name: inName},
				Right: sqlast.Col{Table: rcte, Name: outName},
			},
		},
		Where: sqlast.And{Exprs: []sqlast.Expr{
			sqlast.Binary{
				Op:    dialect.OpLesserThan,
				Left:  sqlast.Col{Table: rcte, Name: depthColumn},
				Right: sqlast.Lit{Raw: strconv.FormatInt(int64(n.Depth), 10)},
			},
			sqlast.Not{Expr: sqlast.Binary{
				Op:   dialect.OpLike,
				Left: sqlast.Col{Table: rcte, Name: pathColumn},
				Right: sqlast.Concat{Parts: []sqlast.Expr{
					sqlast.Str{Val: "%"},
					sqlast.CastText{Expr: stepOut},
					sqlast.Str{Val: "%"},
				}},
			}},
		}},
	}

	c.ctes = append(c.ctes, &sqlast.CTE{
		Name:       rcte,
		Recursive:  true,
		Combinator: c.comb,
		Anchor:     anchor,
		Step:       step,
	})

	from := c.fromClause[n.PathKey()]
	from = &sqlast.Join{
		Left:  from,
		Kind:  sqlast.JoinInner,
		Right: sqlast.CTERef{Name: rcte},
		On:    sqlast.Binary{Op: dialect.OpEquals, Left: base, Right: sqlast.Col{Table: rcte, Name: outName}},
	}
	from = &sqlast.Join{
		Left:  from,
		Kind:  sqlast.JoinInner,
		Right: sqlast.CTERef{Name: outerCTE.name},
		On:    sqlast.Binary{Op: dialect.OpEquals, Left: sqlast.Col{Table: rcte, Name: inName}, Right: parentCol},
	}
	c.fromClause[n.PathKey()] = from

	link := c.recursionCols[n.PathKey()]
	if link == nil {
		return internalErrorf("recursive scope %s has no link column from its parent", n.PathKey())
	}
	link.out = sqlast.Col{Table: rcte, Name: inName}
	link.outAlias = c.newLinkAlias()
	return nil
}

// joinRecursions compiles the deferred recursive children of a freshly
// materialized unit and joins their CTEs back onto it.
func (c *compilerContext) joinRecursions(n *qcode.Node, cte *cteSel) error {
	pk := n.PathKey()
	for _, rn := range c.recursions[pk] {
		link := c.recursionCols[rn.PathKey()]
		if link == nil {
			return internalErrorf("recursion %s was never linked", rn.PathKey())
		}

		out, err := c.compileNode(rn, &link.in, cte)
		if err != nil {
			return err
		}

		rk := rn.PathKey()
		if outs := c.outputs[rk]; len(outs) != 0 {
			c.outputs[pk] = append(c.outputs[pk], outs...)
		}
		delete(c.outputs, rk)
		if tfs := c.tags[rk]; len(tfs) != 0 {
			c.tags[pk] = append(c.tags[pk], tfs...)
		}
		delete(c.tags, rk)

		cur, _, ok := c.selectable[pk].Column(link.in.Name)
		if !ok {
			return internalErrorf("link column %s missing from materialized scope %s", link.in.Name, pk)
		}

		kind := sqlast.JoinInner
		if c.isOptional(rn) {
			kind = sqlast.JoinLeft
		}
		c.fromClause[pk] = &sqlast.Join{
			Left:  c.fromClause[pk],
			Kind:  kind,
			Right: c.fromClause[rk],
			On:    sqlast.Binary{Op: dialect.OpEquals, Left: cur, Right: *out},
		}
		delete(c.fromClause, rk)
	}
	return nil
}
