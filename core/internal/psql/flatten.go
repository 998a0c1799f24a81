package psql

import (
	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

// flattenNode collapses a non-recursive subtree into one joined FROM
// clause, post-order: children first, then the node's own table, then each
// child's filters, outputs and tags hoisted up as the child is joined in.
// Recursive children are skipped here; only the column that will later
// link them is secured. Returns the paths of every scope flattened in.
func (c *compilerContext) flattenNode(n *qcode.Node) ([]string, error) {
	visited := []string{n.PathKey()}
	for _, child := range n.Children {
		vs, err := c.flattenNode(child)
		if err != nil {
			return nil, err
		}
		visited = append(visited, vs...)
	}

	if err := c.createTableAlias(n); err != nil {
		return nil, err
	}
	if err := c.createRecursionLinks(n); err != nil {
		return nil, err
	}

	for _, child := range n.Children {
		c.hoistNode(n, child)
		jc, err := c.joinCond(n, child)
		if err != nil {
			return nil, err
		}
		c.joinNodes(n, child, jc)
	}
	return visited, nil
}

func (c *compilerContext) createTableAlias(n *qcode.Node) error {
	ti, err := c.nodeTable(n)
	if err != nil {
		return err
	}
	alias := c.newAlias(ti.Name)
	c.selectable[n.PathKey()] = &tableAlias{ti: ti, alias: alias}
	c.fromClause[n.PathKey()] = sqlast.TableRef{Schema: ti.Schema, Name: ti.Name, Alias: alias}
	return nil
}

// createRecursionLinks resolves, for each directly recursive child, the
// column of this scope the recursion will later attach to. It has to
// happen now: once this scope materializes, its column set is frozen.
func (c *compilerContext) createRecursionLinks(n *qcode.Node) error {
	for _, rn := range c.recursions[n.PathKey()] {
		outerTI, err := c.nodeTable(n)
		if err != nil {
			return err
		}
		innerTI, err := c.nodeTable(rn)
		if err != nil {
			return err
		}
		te, err := sdata.ResolveEdge(c.schema, outerTI, innerTI,
			rn.EdgeName, c.nodeType(rn), rn.Direction == qcode.DirIn)
		if err != nil {
			return err
		}

		var name string
		switch te.Kind {
		case sdata.RelJunction:
			name = te.OuterPair.Left.Col.Name
		default:
			name = te.Pair.Left.Col.Name
		}
		sel := c.selectable[n.PathKey()]
		col, typ, ok := sel.Column(name)
		if !ok {
			return internalErrorf("recursion link column %s missing on scope %s", name, n.PathKey())
		}
		c.recursionCols[rn.PathKey()] = &recursionLink{in: col, inType: typ}
	}
	return nil
}

// hoistNode moves a child's compilation state onto its parent; the parent
// is the single owner from here on.
func (c *compilerContext) hoistNode(parent, child *qcode.Node) {
	pk, ck := parent.PathKey(), child.PathKey()

	if outs := c.outputs[ck]; len(outs) != 0 {
		c.outputs[pk] = append(c.outputs[pk], outs...)
	}
	delete(c.outputs, ck)

	if tfs := c.tags[ck]; len(tfs) != 0 {
		c.tags[pk] = append(c.tags[pk], tfs...)
	}
	delete(c.tags, ck)

	if fs := c.filters[ck]; len(fs) != 0 {
		c.filters[pk] = append(c.filters[pk], fs...)
	}
	delete(c.filters, ck)

	if rns := c.recursions[ck]; len(rns) != 0 {
		c.recursions[pk] = append(c.recursions[pk], rns...)
	}
	delete(c.recursions, ck)
}
