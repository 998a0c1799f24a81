package core

import (
	"fmt"
	"strings"

	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
)

// Query is a scoped traversal tree over the schema's types. The root scope
// is the query's starting type; each child Node traverses or recurses over
// one edge. Queries are plain data and can be unmarshaled from YAML or JSON.
type Query struct {
	Type     string   `mapstructure:"type" json:"type" yaml:"type"`
	Filters  []Filter `mapstructure:"filters" json:"filters,omitempty" yaml:"filters,omitempty"`
	Outputs  []Output `mapstructure:"outputs" json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Tags     []Tag    `mapstructure:"tags" json:"tags,omitempty" yaml:"tags,omitempty"`
	Children []Node   `mapstructure:"children" json:"children,omitempty" yaml:"children,omitempty"`
}

// Node is one traversal scope below the root. Direction defaults to "out";
// Recursive scopes follow the edge transitively up to Depth steps and
// include the starting row at depth zero.
type Node struct {
	Edge      string   `mapstructure:"edge" json:"edge" yaml:"edge"`
	Type      string   `mapstructure:"type" json:"type" yaml:"type"`
	Direction string   `mapstructure:"direction" json:"direction,omitempty" yaml:"direction,omitempty"`
	Optional  bool     `mapstructure:"optional" json:"optional,omitempty" yaml:"optional,omitempty"`
	Recursive bool     `mapstructure:"recursive" json:"recursive,omitempty" yaml:"recursive,omitempty"`
	Depth     int32    `mapstructure:"depth" json:"depth,omitempty" yaml:"depth,omitempty"`
	Filters   []Filter `mapstructure:"filters" json:"filters,omitempty" yaml:"filters,omitempty"`
	Outputs   []Output `mapstructure:"outputs" json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Tags      []Tag    `mapstructure:"tags" json:"tags,omitempty" yaml:"tags,omitempty"`
	Children  []Node   `mapstructure:"children" json:"children,omitempty" yaml:"children,omitempty"`
}

// Output selects one column of the scope into the result set under Name.
type Output struct {
	Name  string `mapstructure:"name" json:"name" yaml:"name"`
	Field string `mapstructure:"field" json:"field" yaml:"field"`
	Type  string `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
}

// Tag captures one column of the scope under Name for use in filters at
// other scopes.
type Tag struct {
	Name  string `mapstructure:"name" json:"name" yaml:"name"`
	Field string `mapstructure:"field" json:"field" yaml:"field"`
}

// Filter is one predicate over a scope. Comparison operators take the
// column in Field and one operand in Values; "between" takes two operands;
// "in" and "not_in" take a single "$variable" operand. "and" and "or"
// combine the nested Filters instead. An operand starting with "$" is a
// runtime variable, one starting with "%" reads a tag, anything else is a
// literal.
type Filter struct {
	Op      string   `mapstructure:"op" json:"op" yaml:"op"`
	Field   string   `mapstructure:"field" json:"field,omitempty" yaml:"field,omitempty"`
	Values  []string `mapstructure:"values" json:"values,omitempty" yaml:"values,omitempty"`
	Filters []Filter `mapstructure:"filters" json:"filters,omitempty" yaml:"filters,omitempty"`
}

type lowering struct {
	qc *qcode.QCode
	id int32
}

// toQCode lowers the public tree into the emission IR. Structural rules the
// IR checks itself (paths, depths, tag ordering) are left to its Validate.
func (q *Query) toQCode() (*qcode.QCode, error) {
	if q.Type == "" {
		return nil, fmt.Errorf("query has no root type")
	}
	root := &qcode.Node{
		Path: []string{q.Type},
		Kind: qcode.BlockRoot,
	}
	l := &lowering{
		qc: &qcode.QCode{
			Root:     root,
			Location: map[string]qcode.LocationInfo{},
			Filters:  map[string][]qcode.Filter{},
			Outputs:  map[string][]qcode.OutputField{},
			Tags:     map[string][]qcode.TagField{},
		},
	}
	l.qc.Location[root.PathKey()] = qcode.LocationInfo{TypeName: q.Type}
	if err := l.lowerScope(root, q.Filters, q.Outputs, q.Tags, 0); err != nil {
		return nil, err
	}
	for i := range q.Children {
		if err := l.lowerNode(root, &q.Children[i], 0); err != nil {
			return nil, err
		}
	}
	return l.qc, nil
}

func (l *lowering) lowerNode(parent *qcode.Node, n *Node, optional int32) error {
	if n.Edge == "" {
		return fmt.Errorf("scope under %s has no edge", parent.PathKey())
	}
	if n.Type == "" {
		return fmt.Errorf("scope %s under %s has no type", n.Edge, parent.PathKey())
	}

	dir := qcode.DirOut
	switch n.Direction {
	case "", "out":
	case "in":
		dir = qcode.DirIn
	default:
		return fmt.Errorf("scope %s: unknown direction %q", n.Edge, n.Direction)
	}

	kind := qcode.BlockTraverse
	if n.Recursive {
		kind = qcode.BlockRecurse
	} else if n.Depth != 0 {
		return fmt.Errorf("scope %s: depth is only valid on recursive scopes", n.Edge)
	}
	if n.Optional {
		optional++
	}

	l.id++
	qn := &qcode.Node{
		ID:        l.id,
		Path:      append(append([]string{}, parent.Path...), dir.String()+"_"+n.Edge),
		Kind:      kind,
		Direction: dir,
		EdgeName:  n.Edge,
		Depth:     n.Depth,
		Parent:    parent,
	}
	if kind == qcode.BlockRecurse {
		parent.Recursions = append(parent.Recursions, qn)
	} else {
		parent.Children = append(parent.Children, qn)
	}
	l.qc.Location[qn.PathKey()] = qcode.LocationInfo{
		TypeName:      n.Type,
		OptionalDepth: optional,
	}
	if err := l.lowerScope(qn, n.Filters, n.Outputs, n.Tags, optional); err != nil {
		return err
	}
	for i := range n.Children {
		if err := l.lowerNode(qn, &n.Children[i], optional); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowering) lowerScope(n *qcode.Node, filters []Filter, outputs []Output, tags []Tag, optional int32) error {
	pk := n.PathKey()
	for i := range filters {
		ex, err := lowerFilter(&filters[i])
		if err != nil {
			return fmt.Errorf("scope %s: %w", pk, err)
		}
		l.qc.Filters[pk] = append(l.qc.Filters[pk], qcode.Filter{Path: pk, Exp: ex})
	}
	for _, o := range outputs {
		if o.Name == "" || o.Field == "" {
			return fmt.Errorf("scope %s: output needs a name and a field", pk)
		}
		l.qc.Outputs[pk] = append(l.qc.Outputs[pk], qcode.OutputField{
			Alias: o.Name, Path: pk, FieldName: o.Field, Type: o.Type,
		})
	}
	for _, t := range tags {
		if t.Name == "" || t.Field == "" {
			return fmt.Errorf("scope %s: tag needs a name and a field", pk)
		}
		l.qc.Tags[pk] = append(l.qc.Tags[pk], qcode.TagField{
			Name: t.Name, Path: pk, FieldName: t.Field,
		})
	}
	return nil
}

func lowerFilter(f *Filter) (*qcode.Exp, error) {
	if strings.EqualFold(f.Op, "between") {
		if f.Field == "" || len(f.Values) != 2 {
			return nil, fmt.Errorf("between takes a field and two operands")
		}
		return qcode.NewBetween(qcode.NewField(f.Field),
			lowerOperand(f.Values[0]), lowerOperand(f.Values[1])), nil
	}

	op, err := qcode.ParseOp(f.Op)
	if err != nil {
		return nil, err
	}

	switch op.Cardinality() {
	case qcode.CardDual:
		if len(f.Filters) < 2 {
			return nil, fmt.Errorf("%s takes at least two nested filters", f.Op)
		}
		ex, err := lowerFilter(&f.Filters[0])
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(f.Filters); i++ {
			rhs, err := lowerFilter(&f.Filters[i])
			if err != nil {
				return nil, err
			}
			ex = qcode.NewBinary(op, ex, rhs)
		}
		return ex, nil

	case qcode.CardMany:
		if f.Field == "" || len(f.Values) != 1 {
			return nil, fmt.Errorf("%s takes a field and one operand", f.Op)
		}
		v := f.Values[0]
		if !strings.HasPrefix(v, "$") || len(v) == 1 {
			return nil, fmt.Errorf("%s takes a list variable, got %q", f.Op, v)
		}
		return qcode.NewBinary(op, qcode.NewVar(v[1:]), qcode.NewField(f.Field)), nil

	default:
		if f.Field == "" || len(f.Values) != 1 {
			return nil, fmt.Errorf("%s takes a field and one operand", f.Op)
		}
		return qcode.NewBinary(op, qcode.NewField(f.Field), lowerOperand(f.Values[0])), nil
	}
}

func lowerOperand(v string) *qcode.Exp {
	switch {
	case strings.HasPrefix(v, "$") && len(v) > 1:
		return qcode.NewVar(v[1:])
	case strings.HasPrefix(v, "%") && len(v) > 1:
		return qcode.NewTag(v[1:])
	default:
		return qcode.NewLiteral(v)
	}
}
