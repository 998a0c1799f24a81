package psql

import (
	"fmt"
	"strings"

	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
	"github.com/jb-kensho/graphql-compiler/core/internal/sqlast"
)

// selectable is anything a scope's columns resolve against: first the
// scope's aliased table, then the CTE it was materialized into.
type selectable interface {
	AliasName() string
	Column(name string) (sqlast.Col, string, bool)
}

type tableAlias struct {
	ti    sdata.DBTable
	alias string
}

func (t *tableAlias) AliasName() string {
	return t.alias
}

func (t *tableAlias) Column(name string) (sqlast.Col, string, bool) {
	col, ok := t.ti.GetColumn(name)
	if !ok {
		return sqlast.Col{}, "", false
	}
	return sqlast.Col{Table: t.alias, Name: col.Name}, col.Type, true
}

// cteSel is a materialized unit. Its column set is frozen at creation.
type cteSel struct {
	name string
	cols []ColInfo
}

func (t *cteSel) AliasName() string {
	return t.name
}

func (t *cteSel) Column(name string) (sqlast.Col, string, bool) {
	for _, ci := range t.cols {
		if strings.EqualFold(ci.Name, name) {
			return sqlast.Col{Table: t.name, Name: ci.Name}, ci.Type, true
		}
	}
	return sqlast.Col{}, "", false
}

func (c *compilerContext) newAlias(table string) string {
	c.aliasID++
	return fmt.Sprintf("%s_%d", table, c.aliasID)
}

func (c *compilerContext) newCTEName() string {
	c.cteID++
	return fmt.Sprintf("__cte_%d", c.cteID)
}

func (c *compilerContext) newRecursiveCTEName() string {
	c.rcteID++
	return fmt.Sprintf("__rcte_%d", c.rcteID)
}

func (c *compilerContext) newLinkAlias() string {
	c.linkID++
	return fmt.Sprintf("__link_%d", c.linkID)
}

func (c *compilerContext) newTagAlias() string {
	c.tagID++
	return fmt.Sprintf("__tag_%d", c.tagID)
}

func (c *compilerContext) nodeType(n *qcode.Node) string {
	return c.qc.Location[n.PathKey()].TypeName
}

func (c *compilerContext) nodeTable(n *qcode.Node) (sdata.DBTable, error) {
	return c.schema.GetTableByType(c.nodeType(n))
}

func (c *compilerContext) isOptional(n *qcode.Node) bool {
	return c.qc.Location[n.PathKey()].OptionalDepth > 0
}

// internalErrorf marks invariant violations: malformed trees or operand
// shapes an upstream stage should never have produced.
func internalErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("internal: "+format, args...)
}
