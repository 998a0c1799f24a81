package dialect

type SQLiteDialect struct {
}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + s + `"`
}

func (d *SQLiteDialect) BindVar(i int) string {
	return "?"
}

func (d *SQLiteDialect) UseNamedParams() bool {
	return false
}

func (d *SQLiteDialect) DefaultCombinator() Combinator {
	return CombinatorUnionAll
}

func (d *SQLiteDialect) SupportsCombinator(c Combinator) bool {
	return true
}

func (d *SQLiteDialect) RequiresRecursiveKeyword() bool {
	return true
}

func (d *SQLiteDialect) TextCastType() string {
	return "TEXT"
}

func (d *SQLiteDialect) RenderOp(op Op) (string, error) {
	return renderInfixOp(d.Name(), op)
}

func (d *SQLiteDialect) RenderConcat(w Writer, parts []func()) {
	for i, p := range parts {
		if i != 0 {
			w.WriteString(` || `)
		}
		p()
	}
}
