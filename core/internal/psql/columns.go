package psql

import (
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

// buildQuery assembles the SELECT for one materialization unit. Filters
// compile first so tag references still see pre-rename column names. The
// final (root) query skips filters, tag columns and link columns: filters
// were applied inside the root CTE and the rest is plumbing the result
// set must not carry.
func (c *compilerContext) buildQuery(n *qcode.Node, final bool) (*sqlast.Select, []ColInfo, error) {
	pk := n.PathKey()

	var clauses []sqlast.Expr
	if !final {
		for _, f := range c.filters[pk] {
			ex, err := c.compileFilter(f)
			if err != nil {
				return nil, nil, err
			}
			clauses = append(clauses, ex)
		}
	}

	var cols []sqlast.SelectCol
	var meta []ColInfo
	projected := map[string]sqlast.Col{}

	outs := c.outputs[pk]
	for i := range outs {
		of := &outs[i]
		sel := c.selectable[of.Path]
		if sel == nil {
			return nil, nil, internalErrorf("output field %s references unmaterialized scope %s", of.Alias, of.Path)
		}

		if of.renamed {
			col, typ, ok := sel.Column(of.Alias)
			if !ok {
				return nil, nil, internalErrorf("renamed column %s missing on %s", of.Alias, sel.AliasName())
			}
			cols = append(cols, sqlast.SelectCol{Expr: col})
			meta = append(meta, ColInfo{Name: of.Alias, Type: colType(of.Type, typ)})
			projected[of.Alias] = col
			continue
		}

		col, typ, ok := sel.Column(of.FieldName)
		if !ok {
			return nil, nil, &sdata.SchemaError{
				Table:  sel.AliasName(),
				Field:  of.FieldName,
				Reason: "field is not a column",
			}
		}
		cols = append(cols, sqlast.SelectCol{Expr: col, Alias: of.Alias})
		of.renamed = true
		c.recordRename(of.Path, of.FieldName, of.Alias)
		meta = append(meta, ColInfo{Name: of.Alias, Type: colType(of.Type, typ)})
		projected[of.Alias] = col
	}

	if !final {
		for _, tf := range c.tags[pk] {
			sel := c.selectable[tf.Path]
			if sel == nil {
				return nil, nil, internalErrorf("tag %s references unmaterialized scope %s", tf.Name, tf.Path)
			}
			col, typ, ok := sel.Column(tf.FieldName)
			if !ok {
				return nil, nil, &sdata.SchemaError{
					Table:  sel.AliasName(),
					Field:  tf.FieldName,
					Reason: "field is not a column",
				}
			}
			alias := c.newTagAlias()
			cols = append(cols, sqlast.SelectCol{Expr: col, Alias: alias})
			meta = append(meta, ColInfo{Name: alias, Type: typ})
			c.recordRename(tf.Path, tf.FieldName, alias)
		}

		// columns later joins attach to: one per deferred recursion, plus
		// the closure's out column when this unit completes a recursion
		for _, rn := range c.recursions[pk] {
			link := c.recursionCols[rn.PathKey()]
			if link == nil {
				return nil, nil, internalErrorf("recursion %s was never linked", rn.PathKey())
			}
			if prev, ok := projected[link.in.Name]; ok {
				if prev == link.in {
					continue
				}
				// a second column under this name would make the link
				// join resolve against whichever the scan finds first
				return nil, nil, &sdata.SchemaError{
					Field:  link.in.Name,
					Reason: "output alias collides with a recursion link column",
				}
			}
			cols = append(cols, sqlast.SelectCol{Expr: link.in})
			meta = append(meta, ColInfo{Name: link.in.Name, Type: link.inType})
			projected[link.in.Name] = link.in
		}
		if link, ok := c.recursionCols[pk]; ok && link.outAlias != "" {
			cols = append(cols, sqlast.SelectCol{Expr: link.out, Alias: link.outAlias})
			meta = append(meta, ColInfo{Name: link.outAlias, Type: link.inType})
		}
	}

	sel := &sqlast.Select{
		Cols: cols,
		From: c.fromClause[pk],
	}
	switch len(clauses) {
	case 0:
	case 1:
		sel.Where = clauses[0]
	default:
		sel.Where = sqlast.And{Exprs: clauses}
	}
	return sel, meta, nil
}

func (c *compilerContext) recordRename(path, field, alias string) {
	m, ok := c.renames[path]
	if !ok {
		m = map[string]string{}
		c.renames[path] = m
	}
	m[field] = alias
}

func colType(declared, resolved string) string {
	if declared != "" {
		return declared
	}
	return resolved
}
