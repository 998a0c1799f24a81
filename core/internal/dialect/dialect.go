package dialect

import "fmt"

// Combinator is the set operation a backend uses to merge the anchor and
// recursive terms of a recursive CTE.
type Combinator int8

const (
	// CombinatorUnionAll preserves duplicate rows.
	CombinatorUnionAll Combinator = iota
	// CombinatorUnion deduplicates rows.
	CombinatorUnion
)

func (c Combinator) String() string {
	switch c {
	case CombinatorUnionAll:
		return "UNION ALL"
	case CombinatorUnion:
		return "UNION"
	}
	return fmt.Sprintf("combinator(%d)", c)
}

// ParseCombinator maps a configuration value to a Combinator.
func ParseCombinator(s string) (Combinator, error) {
	switch s {
	case "union_all":
		return CombinatorUnionAll, nil
	case "union":
		return CombinatorUnion, nil
	}
	return 0, fmt.Errorf("unknown recursion combinator: %s", s)
}

// Op is the closed vocabulary of binary operators the renderer can emit.
type Op int8

const (
	OpEquals Op = iota
	OpNotEquals
	OpLesserThan
	OpLesserOrEquals
	OpGreaterThan
	OpGreaterOrEquals
	OpLike
	OpIn
	OpNotIn
	OpAdd
)

// Writer is the minimal surface a dialect needs to write SQL text.
type Writer interface {
	WriteString(s string) (int, error)
}

// Dialect describes one backend: identifier quoting, parameter style, the
// recursion combinators its recursive CTEs accept, and the textual forms
// that vary between engines. It makes no semantic decisions; all join
// algebra and CTE structure is fixed by the compiler before rendering.
type Dialect interface {
	Name() string

	QuoteIdentifier(s string) string
	BindVar(i int) string
	UseNamedParams() bool

	DefaultCombinator() Combinator
	SupportsCombinator(c Combinator) bool

	// RequiresRecursiveKeyword reports whether the WITH clause must carry
	// the RECURSIVE keyword when it contains a recursive CTE.
	RequiresRecursiveKeyword() bool

	// TextCastType returns the type name used to stringify a value.
	TextCastType() string

	RenderOp(op Op) (string, error)
	RenderConcat(w Writer, parts []func())
}

// CapabilityError reports that a backend was asked to do something it
// cannot, caught at compile time instead of surfacing as a database error.
type CapabilityError struct {
	Backend string
	Feature string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("backend %s does not support %s", e.Backend, e.Feature)
}

// New returns the dialect for a database type, defaulting to postgres.
func New(dbType string, dbVersion int) Dialect {
	switch dbType {
	case "mysql":
		return &MySQLDialect{DBVersion: dbVersion}
	case "sqlite":
		return &SQLiteDialect{}
	case "mssql":
		return &MSSQLDialect{DBVersion: dbVersion}
	default:
		return &PostgresDialect{DBVersion: dbVersion}
	}
}

var infixOps = map[Op]string{
	OpEquals:          `=`,
	OpNotEquals:       `!=`,
	OpLesserThan:      `<`,
	OpLesserOrEquals:  `<=`,
	OpGreaterThan:     `>`,
	OpGreaterOrEquals: `>=`,
	OpLike:            `LIKE`,
	OpIn:              `IN`,
	OpNotIn:           `NOT IN`,
	OpAdd:             `+`,
}

func renderInfixOp(backend string, op Op) (string, error) {
	if s, ok := infixOps[op]; ok {
		return s, nil
	}
	return "", &CapabilityError{Backend: backend, Feature: fmt.Sprintf("operator %d", op)}
}
