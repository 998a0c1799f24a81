// Package qcode holds the lowered intermediate representation a graph
// query compiles to before SQL emission: a tree of traversal scopes plus
// per-scope filters, output fields and tag captures.
package qcode

import (
	"fmt"
	"strings"

	"github.com/jb-kensho/graphql-compiler/core/internal/util"
)

type BlockKind int8

const (
	BlockRoot BlockKind = iota
	BlockTraverse
	BlockRecurse
)

func (k BlockKind) String() string {
	switch k {
	case BlockRoot:
		return "root"
	case BlockTraverse:
		return "traverse"
	case BlockRecurse:
		return "recurse"
	}
	return "unknown"
}

type Direction int8

const (
	DirOut Direction = iota
	DirIn
)

func (d Direction) String() string {
	if d == DirIn {
		return "in"
	}
	return "out"
}

// Node is one traversal scope. Children holds the non-recursive child
// scopes, Recursions the child scopes that compile into recursive CTEs.
type Node struct {
	ID        int32
	Path      []string
	Kind      BlockKind
	Direction Direction
	EdgeName  string
	Depth     int32

	Parent     *Node
	Children   []*Node
	Recursions []*Node
}

// PathKey is the node's path as a single map key.
func (n *Node) PathKey() string {
	return strings.Join(n.Path, ".")
}

// LocationInfo is the static scope metadata emission needs: the schema
// type backing the scope and how many optional ancestors enclose it.
type LocationInfo struct {
	TypeName      string
	OptionalDepth int32
}

// Filter is a predicate attached to a scope. Path names the scope whose
// table alias field references resolve against.
type Filter struct {
	Path string
	Exp  *Exp
}

// OutputField is one column of the result. Path names the scope the field
// was selected at, which stays fixed while the field itself is hoisted
// from materialization to materialization.
type OutputField struct {
	Alias     string
	Path      string
	FieldName string
	Type      string
}

// TagField is a value captured at one scope for use in filters at others.
type TagField struct {
	Name      string
	Path      string
	FieldName string
}

// QCode is a complete lowered query. The per-scope maps are keyed by node
// PathKey. QCode is read-only during emission; compilation copies what it
// mutates.
type QCode struct {
	Root     *QNode
	Location map[string]LocationInfo
	Filters  map[string][]Filter
	Outputs  map[string][]OutputField
	Tags     map[string][]TagField
}

// QNode aliases Node for readability at the package boundary.
type QNode = Node

const internalPrefix = "__"

// Validate checks the structural invariants emission relies on: one scope
// per path, sane recursion bounds, no output aliases that collide with
// generated column names, and tags defined no later than the scopes that
// filter on them.
func (qc *QCode) Validate() error {
	if qc.Root == nil {
		return fmt.Errorf("query has no root scope")
	}
	if qc.Root.Kind != BlockRoot {
		return fmt.Errorf("root scope has kind %s", qc.Root.Kind)
	}

	order := map[string]int{}
	pos := 0
	st := util.NewStackInf()
	st.Push(qc.Root)
	for st.Len() != 0 {
		n := st.Pop().(*Node)
		key := n.PathKey()
		if _, ok := order[key]; ok {
			return fmt.Errorf("duplicate scope path: %s", key)
		}
		order[key] = pos
		pos++
		if _, ok := qc.Location[key]; !ok {
			return fmt.Errorf("scope has no location info: %s", key)
		}
		if n.Kind == BlockRecurse && n.Depth <= 0 {
			return fmt.Errorf("recursion depth must be positive, got %d at %s", n.Depth, key)
		}
		if n.Kind != BlockRoot && n.EdgeName == "" {
			return fmt.Errorf("scope has no edge name: %s", key)
		}
		// push in reverse so scopes pop in declaration order
		for i := len(n.Recursions) - 1; i >= 0; i-- {
			if n.Recursions[i].Kind != BlockRecurse {
				return fmt.Errorf("non-recursive scope %s listed as a recursion", n.Recursions[i].PathKey())
			}
			st.Push(n.Recursions[i])
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if n.Children[i].Kind == BlockRecurse {
				return fmt.Errorf("recursive scope %s listed as a plain child", n.Children[i].PathKey())
			}
			st.Push(n.Children[i])
		}
	}

	for path, outs := range qc.Outputs {
		if _, ok := order[path]; !ok {
			return fmt.Errorf("output fields on unknown scope: %s", path)
		}
		for _, of := range outs {
			if strings.HasPrefix(of.Alias, internalPrefix) {
				return fmt.Errorf("output alias %s uses a reserved prefix", of.Alias)
			}
			if of.Alias == "" || of.FieldName == "" {
				return fmt.Errorf("incomplete output field at %s", path)
			}
		}
	}

	tagScope := map[string]string{}
	for path, tags := range qc.Tags {
		if _, ok := order[path]; !ok {
			return fmt.Errorf("tag fields on unknown scope: %s", path)
		}
		for _, tf := range tags {
			if prev, ok := tagScope[tf.Name]; ok && prev != tf.Path {
				return fmt.Errorf("tag %s defined at both %s and %s", tf.Name, prev, tf.Path)
			}
			tagScope[tf.Name] = tf.Path
		}
	}

	for path, filters := range qc.Filters {
		if _, ok := order[path]; !ok {
			return fmt.Errorf("filters on unknown scope: %s", path)
		}
		for _, f := range filters {
			fo, ok := order[f.Path]
			if !ok {
				return fmt.Errorf("filter bound to unknown scope: %s", f.Path)
			}
			if err := validateExp(f.Exp, f.Path, fo, tagScope, order); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateExp(ex *Exp, path string, pos int, tagScope map[string]string, order map[string]int) error {
	if ex == nil {
		return fmt.Errorf("empty predicate at %s", path)
	}
	switch ex.Kind {
	case ExpField:
		if ex.FieldName == "" {
			return fmt.Errorf("field predicate without a field name at %s", path)
		}
	case ExpVar:
		if ex.VarName == "" {
			return fmt.Errorf("variable predicate without a name at %s", path)
		}
	case ExpLit:
		// nothing to check, empty string literals are legal
	case ExpTag:
		scope, ok := tagScope[ex.TagName]
		if !ok {
			return fmt.Errorf("filter at %s references undefined tag: %s", path, ex.TagName)
		}
		if order[scope] > pos {
			return fmt.Errorf("tag %s referenced at %s before its defining scope %s",
				ex.TagName, path, scope)
		}
	case ExpBinary:
		card, ok := opCardinality[ex.Op]
		if !ok {
			return fmt.Errorf("unknown operator in filter at %s", path)
		}
		switch card {
		case CardSingle:
			if ex.Left == nil && ex.Right == nil {
				return fmt.Errorf("operator %s at %s has no operands", ex.Op, path)
			}
		default:
			if ex.Left == nil || ex.Right == nil {
				return fmt.Errorf("operator %s at %s needs two operands", ex.Op, path)
			}
		}
		if ex.Left != nil {
			if err := validateExp(ex.Left, path, pos, tagScope, order); err != nil {
				return err
			}
		}
		if ex.Right != nil {
			if err := validateExp(ex.Right, path, pos, tagScope, order); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown predicate kind at %s", path)
	}
	return nil
}
