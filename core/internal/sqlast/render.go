package sqlast

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jb-kensho/graphql-compiler/core/internal/dialect"
)

// Param is one run-time parameter of a rendered query, in the order the
// backend expects the values.
type Param struct {
	Name   string
	Type   string
	IsList bool
}

// Render writes the query as SQL for the given dialect and returns its
// parameter list. Backends with positional named parameters reference a
// repeated variable once; backends with anonymous placeholders repeat the
// parameter per occurrence.
func Render(w *bytes.Buffer, d dialect.Dialect, q *Query) ([]Param, error) {
	r := &renderer{w: w, d: d, seen: map[string]int{}}

	if len(q.CTEs) != 0 {
		r.renderCTEs(q.CTEs)
	}
	r.renderSelect(q.Root)

	if r.err != nil {
		return nil, r.err
	}
	return r.params, nil
}

type renderer struct {
	w      *bytes.Buffer
	d      dialect.Dialect
	params []Param
	seen   map[string]int
	err    error
}

func (r *renderer) ws(s string) {
	r.w.WriteString(s)
}

func (r *renderer) quote(s string) {
	r.w.WriteString(r.d.QuoteIdentifier(s))
}

func (r *renderer) renderCTEs(ctes []*CTE) {
	recursive := false
	for _, cte := range ctes {
		if cte.Recursive {
			recursive = true
			break
		}
	}
	r.ws(`WITH `)
	if recursive && r.d.RequiresRecursiveKeyword() {
		r.ws(`RECURSIVE `)
	}
	for i, cte := range ctes {
		if i != 0 {
			r.ws(`, `)
		}
		r.quote(cte.Name)
		r.ws(` AS (`)
		if cte.Recursive {
			r.renderSelect(cte.Anchor)
			r.ws(` `)
			r.ws(cte.Combinator.String())
			r.ws(` `)
			r.renderSelect(cte.Step)
		} else {
			r.renderSelect(cte.Body)
		}
		r.ws(`)`)
	}
	r.ws(` `)
}

func (r *renderer) renderSelect(sel *Select) {
	if sel == nil {
		r.fail(fmt.Errorf("internal: empty select"))
		return
	}
	r.ws(`SELECT `)
	if sel.Distinct {
		r.ws(`DISTINCT `)
	}
	if len(sel.Cols) == 0 {
		r.fail(fmt.Errorf("internal: select with no columns"))
		return
	}
	for i, c := range sel.Cols {
		if i != 0 {
			r.ws(`, `)
		}
		r.renderExpr(c.Expr)
		if c.Alias != "" {
			r.ws(` AS `)
			r.quote(c.Alias)
		}
	}
	r.ws(` FROM `)
	r.renderFrom(sel.From)
	if sel.Where != nil {
		r.ws(` WHERE `)
		r.renderExpr(sel.Where)
	}
}

func (r *renderer) renderFrom(fi FromItem) {
	switch f := fi.(type) {
	case TableRef:
		if f.Schema != "" {
			r.quote(f.Schema)
			r.ws(`.`)
		}
		r.quote(f.Name)
		if f.Alias != "" && f.Alias != f.Name {
			r.ws(` AS `)
			r.quote(f.Alias)
		}
	case CTERef:
		r.quote(f.Name)
	case *Join:
		r.renderFrom(f.Left)
		if f.Kind == JoinLeft {
			r.ws(` LEFT OUTER JOIN `)
		} else {
			r.ws(` INNER JOIN `)
		}
		r.renderFrom(f.Right)
		r.ws(` ON `)
		r.renderExpr(f.On)
	default:
		r.fail(fmt.Errorf("internal: unknown from item %T", fi))
	}
}

func (r *renderer) renderExpr(ex Expr) {
	switch e := ex.(type) {
	case Col:
		r.quote(e.Table)
		r.ws(`.`)
		r.quote(e.Name)

	case Bind:
		r.renderBind(e)

	case Lit:
		r.ws(e.Raw)

	case Str:
		r.ws(quoteString(e.Val))

	case Binary:
		op, err := r.d.RenderOp(e.Op)
		if err != nil {
			r.fail(err)
			return
		}
		r.ws(`(`)
		r.renderExpr(e.Left)
		r.ws(` `)
		r.ws(op)
		r.ws(` `)
		if e.Op == dialect.OpIn || e.Op == dialect.OpNotIn {
			r.ws(`(`)
			r.renderExpr(e.Right)
			r.ws(`)`)
		} else {
			r.renderExpr(e.Right)
		}
		r.ws(`)`)

	case And:
		r.renderList(e.Exprs, ` AND `)

	case Or:
		r.renderList(e.Exprs, ` OR `)

	case Not:
		r.ws(`NOT (`)
		r.renderExpr(e.Expr)
		r.ws(`)`)

	case Concat:
		parts := make([]func(), len(e.Parts))
		for i, p := range e.Parts {
			p := p
			parts[i] = func() { r.renderExpr(p) }
		}
		r.d.RenderConcat(r.w, parts)

	case CastText:
		r.ws(`CAST(`)
		r.renderExpr(e.Expr)
		r.ws(` AS `)
		r.ws(r.d.TextCastType())
		r.ws(`)`)

	default:
		r.fail(fmt.Errorf("internal: unknown expression %T", ex))
	}
}

func (r *renderer) renderList(exprs []Expr, sep string) {
	if len(exprs) == 0 {
		r.fail(fmt.Errorf("internal: empty boolean list"))
		return
	}
	if len(exprs) == 1 {
		r.renderExpr(exprs[0])
		return
	}
	r.ws(`(`)
	for i, ex := range exprs {
		if i != 0 {
			r.ws(sep)
		}
		r.renderExpr(ex)
	}
	r.ws(`)`)
}

func (r *renderer) renderBind(b Bind) {
	if r.d.UseNamedParams() {
		if i, ok := r.seen[b.Name]; ok {
			r.ws(r.d.BindVar(i))
			return
		}
	}
	r.params = append(r.params, Param{Name: b.Name, Type: b.Type, IsList: b.List})
	n := len(r.params)
	r.seen[b.Name] = n
	r.ws(r.d.BindVar(n))
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// quoteString single-quotes a string constant, doubling embedded quotes.
func quoteString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
		} else {
			out = append(out, s[i])
		}
	}
	return string(append(out, '\''))
}

// RenderLiteral formats a predicate literal: numbers and booleans pass
// through, everything else becomes a quoted string constant.
func RenderLiteral(v string) Expr {
	if v == "true" || v == "false" || v == "null" {
		return Lit{Raw: v}
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return Lit{Raw: v}
	}
	return Str{Val: v}
}
