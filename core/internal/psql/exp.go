package psql

import (
	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

func (c *compilerContext) compileFilter(f qcode.Filter) (sqlast.Expr, error) {
	sel := c.selectable[f.Path]
	if sel == nil {
		return nil, internalErrorf("filter references unmaterialized scope %s", f.Path)
	}
	ex, _, err := c.compileExp(f.Exp, sel)
	return ex, err
}

// compileExp lowers one predicate node. The second return value is the
// column type when the expression resolves to a column, used to type the
// parameter on the other side of a comparison.
func (c *compilerContext) compileExp(ex *qcode.Exp, sel selectable) (sqlast.Expr, string, error) {
	switch ex.Kind {
	case qcode.ExpField:
		col, typ, ok := sel.Column(ex.FieldName)
		if !ok {
			return nil, "", &sdata.SchemaError{
				Table:  sel.AliasName(),
				Field:  ex.FieldName,
				Reason: "field is not a column",
			}
		}
		return col, typ, nil

	case qcode.ExpVar:
		return sqlast.Bind{Name: ex.VarName}, "", nil

	case qcode.ExpLit:
		return sqlast.RenderLiteral(ex.Literal), "", nil

	case qcode.ExpTag:
		return c.compileTag(ex.TagName)

	case qcode.ExpBinary:
		return c.compileBinary(ex, sel)
	}
	return nil, "", internalErrorf("unknown predicate kind %d", ex.Kind)
}

// compileTag resolves a tag reference to the column captured at the tag's
// defining scope, following any rename that happened when that scope was
// materialized into a CTE.
func (c *compilerContext) compileTag(name string) (sqlast.Expr, string, error) {
	tf, ok := c.tagDefs[name]
	if !ok {
		return nil, "", internalErrorf("filter references unknown tag %s", name)
	}
	colName := tf.FieldName
	if renamed, ok := c.renames[tf.Path][tf.FieldName]; ok {
		colName = renamed
	}
	sel := c.selectable[tf.Path]
	if sel == nil {
		return nil, "", internalErrorf("tag %s references unmaterialized scope %s", name, tf.Path)
	}
	col, typ, ok := sel.Column(colName)
	if !ok {
		return nil, "", internalErrorf("tag column %s missing on %s", colName, sel.AliasName())
	}
	return col, typ, nil
}

func (c *compilerContext) compileBinary(ex *qcode.Exp, sel selectable) (sqlast.Expr, string, error) {
	var left, right sqlast.Expr
	var ltyp, rtyp string
	var err error

	if ex.Left != nil {
		if left, ltyp, err = c.compileExp(ex.Left, sel); err != nil {
			return nil, "", err
		}
	}
	if ex.Right != nil {
		if right, rtyp, err = c.compileExp(ex.Right, sel); err != nil {
			return nil, "", err
		}
	}

	switch ex.Op.Cardinality() {
	case qcode.CardSingle:
		if left == nil && right == nil {
			return nil, "", internalErrorf("operator %s has no operands", ex.Op)
		}
		if left == nil {
			left, right = right, left
			ltyp, rtyp = rtyp, ltyp
		}
		if right == nil {
			return nil, "", internalErrorf("operator %s has a single operand", ex.Op)
		}
		left = c.typedOperand(left, rtyp)
		right = c.typedOperand(right, ltyp)

		if ex.Op == qcode.OpHasSubstring {
			return sqlast.Binary{
				Op:   dialect.OpLike,
				Left: left,
				Right: sqlast.Concat{Parts: []sqlast.Expr{
					sqlast.Str{Val: "%"},
					right,
					sqlast.Str{Val: "%"},
				}},
			}, "", nil
		}
		op, err := singleOp(ex.Op)
		if err != nil {
			return nil, "", err
		}
		return sqlast.Binary{Op: op, Left: left, Right: right}, "", nil

	case qcode.CardDual:
		if left == nil || right == nil {
			return nil, "", internalErrorf("operator %s needs two operands", ex.Op)
		}
		if ex.Op == qcode.OpOr {
			return sqlast.Or{Exprs: []sqlast.Expr{left, right}}, "", nil
		}
		return sqlast.And{Exprs: []sqlast.Expr{left, right}}, "", nil

	case qcode.CardMany:
		bind, ok := left.(sqlast.Bind)
		if !ok {
			return nil, "", internalErrorf("membership operator %s needs a variable on the left", ex.Op)
		}
		col, ok := right.(sqlast.Col)
		if !ok {
			return nil, "", internalErrorf("membership operator %s needs a column on the right", ex.Op)
		}
		bind.List = true
		bind.Type = rtyp
		op := dialect.OpIn
		if ex.Op == qcode.OpNotIn {
			op = dialect.OpNotIn
		}
		return sqlast.Binary{Op: op, Left: col, Right: bind}, "", nil
	}
	return nil, "", internalErrorf("operator %s has no cardinality", ex.Op)
}

// typedOperand gives an untyped parameter the column type it is compared
// against, and inlines configured preset variables.
func (c *compilerContext) typedOperand(ex sqlast.Expr, typ string) sqlast.Expr {
	bind, ok := ex.(sqlast.Bind)
	if !ok {
		return ex
	}
	if v, ok := c.svars[bind.Name]; ok {
		return sqlast.RenderLiteral(v)
	}
	if bind.Type == "" {
		bind.Type = typ
	}
	return bind
}

func singleOp(op qcode.ExpOp) (dialect.Op, error) {
	switch op {
	case qcode.OpEquals:
		return dialect.OpEquals, nil
	case qcode.OpNotEquals:
		return dialect.OpNotEquals, nil
	case qcode.OpLesserThan:
		return dialect.OpLesserThan, nil
	case qcode.OpLesserOrEquals:
		return dialect.OpLesserOrEquals, nil
	case qcode.OpGreaterThan:
		return dialect.OpGreaterThan, nil
	case qcode.OpGreaterOrEquals:
		return dialect.OpGreaterOrEquals, nil
	}
	return 0, internalErrorf("operator %s is not a comparison", op)
}
