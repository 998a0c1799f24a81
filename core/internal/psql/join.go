package psql

import (
	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

// joinClause is a resolved join between two scopes. Direct edges fill on;
// junction edges go through an aliased junction table with one condition
// per hop.
type joinClause struct {
	kind     sdata.RelKind
	on       sqlast.Expr
	junction sqlast.TableRef
	outerOn  sqlast.Expr
	innerOn  sqlast.Expr
}

func (c *compilerContext) joinCond(outer, inner *qcode.Node) (joinClause, error) {
	outerTI, err := c.nodeTable(outer)
	if err != nil {
		return joinClause{}, err
	}
	innerTI, err := c.nodeTable(inner)
	if err != nil {
		return joinClause{}, err
	}

	te, err := sdata.ResolveEdge(c.schema, outerTI, innerTI,
		inner.EdgeName, c.nodeType(inner), inner.Direction == qcode.DirIn)
	if err != nil {
		return joinClause{}, err
	}

	oSel := c.selectable[outer.PathKey()]
	iSel := c.selectable[inner.PathKey()]

	if te.Kind == sdata.RelDirect {
		on, err := pairExpr(te.Pair, oSel, iSel)
		if err != nil {
			return joinClause{}, err
		}
		return joinClause{kind: te.Kind, on: on}, nil
	}

	jAlias := c.newAlias(te.Junction.Name)
	jSel := &tableAlias{ti: te.Junction, alias: jAlias}
	outerOn, err := pairExpr(te.OuterPair, oSel, jSel)
	if err != nil {
		return joinClause{}, err
	}
	innerOn, err := pairExpr(te.InnerPair, jSel, iSel)
	if err != nil {
		return joinClause{}, err
	}
	return joinClause{
		kind:     te.Kind,
		junction: sqlast.TableRef{Schema: te.Junction.Schema, Name: te.Junction.Name, Alias: jAlias},
		outerOn:  outerOn,
		innerOn:  innerOn,
	}, nil
}

func pairExpr(p sdata.JoinPair, outer, inner selectable) (sqlast.Expr, error) {
	left, err := sideCol(p.Left, outer, inner)
	if err != nil {
		return nil, err
	}
	right, err := sideCol(p.Right, outer, inner)
	if err != nil {
		return nil, err
	}
	return sqlast.Binary{Op: dialect.OpEquals, Left: left, Right: right}, nil
}

func sideCol(jc sdata.JoinCol, outer, inner selectable) (sqlast.Col, error) {
	sel := outer
	if jc.Side == sdata.SideInner {
		sel = inner
	}
	col, _, ok := sel.Column(jc.Col.Name)
	if !ok {
		return sqlast.Col{}, internalErrorf("join column %s missing on %s", jc.Col.Name, sel.AliasName())
	}
	return col, nil
}

// joinNodes folds a child's FROM clause into its parent's, LEFT OUTER when
// the child sits under an optional scope. A junction edge becomes two
// joins of the same kind.
func (c *compilerContext) joinNodes(parent, child *qcode.Node, jc joinClause) {
	kind := sqlast.JoinInner
	if c.isOptional(child) {
		kind = sqlast.JoinLeft
	}

	from := c.fromClause[parent.PathKey()]
	if jc.kind == sdata.RelJunction {
		from = &sqlast.Join{Left: from, Kind: kind, Right: jc.junction, On: jc.outerOn}
		from = &sqlast.Join{Left: from, Kind: kind, Right: c.fromClause[child.PathKey()], On: jc.innerOn}
	} else {
		from = &sqlast.Join{Left: from, Kind: kind, Right: c.fromClause[child.PathKey()], On: jc.on}
	}
	c.fromClause[parent.PathKey()] = from
	delete(c.fromClause, child.PathKey())
}
