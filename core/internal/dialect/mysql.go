package dialect

type MySQLDialect struct {
	DBVersion int
}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + s + "`"
}

func (d *MySQLDialect) BindVar(i int) string {
	return "?"
}

func (d *MySQLDialect) UseNamedParams() bool {
	return false
}

func (d *MySQLDialect) DefaultCombinator() Combinator {
	return CombinatorUnionAll
}

func (d *MySQLDialect) SupportsCombinator(c Combinator) bool {
	return true
}

func (d *MySQLDialect) RequiresRecursiveKeyword() bool {
	return true
}

func (d *MySQLDialect) TextCastType() string {
	return "CHAR"
}

func (d *MySQLDialect) RenderOp(op Op) (string, error) {
	return renderInfixOp(d.Name(), op)
}

// MySQL string concatenation with || depends on the PIPES_AS_CONCAT sql
// mode, so CONCAT() is used instead.
func (d *MySQLDialect) RenderConcat(w Writer, parts []func()) {
	w.WriteString(`CONCAT(`)
	for i, p := range parts {
		if i != 0 {
			w.WriteString(`, `)
		}
		p()
	}
	w.WriteString(`)`)
}
