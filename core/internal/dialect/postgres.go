package dialect

import "fmt"

type PostgresDialect struct {
	DBVersion int
}

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return `"` + s + `"`
}

func (d *PostgresDialect) BindVar(i int) string {
	return fmt.Sprintf("$%d", i)
}

func (d *PostgresDialect) UseNamedParams() bool {
	return true
}

func (d *PostgresDialect) DefaultCombinator() Combinator {
	return CombinatorUnionAll
}

func (d *PostgresDialect) SupportsCombinator(c Combinator) bool {
	return true
}

func (d *PostgresDialect) RequiresRecursiveKeyword() bool {
	return true
}

func (d *PostgresDialect) TextCastType() string {
	return "TEXT"
}

func (d *PostgresDialect) RenderOp(op Op) (string, error) {
	return renderInfixOp(d.Name(), op)
}

func (d *PostgresDialect) RenderConcat(w Writer, parts []func()) {
	for i, p := range parts {
		if i != 0 {
			w.WriteString(` || `)
		}
		p()
	}
}
