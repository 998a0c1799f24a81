package dialect

import "fmt"

type MSSQLDialect struct {
	DBVersion int
}

func (d *MSSQLDialect) Name() string {
	return "mssql"
}

func (d *MSSQLDialect) QuoteIdentifier(s string) string {
	return `[` + s + `]`
}

func (d *MSSQLDialect) BindVar(i int) string {
	return fmt.Sprintf("@p%d", i)
}

func (d *MSSQLDialect) UseNamedParams() bool {
	return true
}

func (d *MSSQLDialect) DefaultCombinator() Combinator {
	return CombinatorUnionAll
}

// SQL Server only accepts UNION ALL between the anchor and recursive
// members of a recursive CTE.
func (d *MSSQLDialect) SupportsCombinator(c Combinator) bool {
	return c == CombinatorUnionAll
}

func (d *MSSQLDialect) RequiresRecursiveKeyword() bool {
	return false
}

func (d *MSSQLDialect) TextCastType() string {
	return "VARCHAR(MAX)"
}

func (d *MSSQLDialect) RenderOp(op Op) (string, error) {
	return renderInfixOp(d.Name(), op)
}

func (d *MSSQLDialect) RenderConcat(w Writer, parts []func()) {
	w.WriteString(`CONCAT(`)
	for i, p := range parts {
		if i != 0 {
			w.WriteString(`, `)
		}
		p()
	}
	w.WriteString(`)`)
}
