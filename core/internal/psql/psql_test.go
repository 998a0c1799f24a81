package psql

import (
	"bytes"
	"testing"

	"github.com/jb-kensho/graphql-compiler/core/internal/qcode"
	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
)

// test helpers for assembling lowered query trees by hand

type testQuery struct {
	qc *qcode.QCode
	id int32
}

func newTestQuery(rootType string) (*testQuery, *qcode.Node) {
	root := &qcode.Node{
		Path: []string{rootType},
		Kind: qcode.BlockRoot,
	}
	tq := &testQuery{
		qc: &qcode.QCode{
			Root:     root,
			Location: map[string]qcode.LocationInfo{rootType: {TypeName: rootType}},
			Filters:  map[string][]qcode.Filter{},
			Outputs:  map[string][]qcode.OutputField{},
			Tags:     map[string][]qcode.TagField{},
		},
	}
	return tq, root
}

func (tq *testQuery) addNode(parent *qcode.Node, kind qcode.BlockKind, dir qcode.Direction,
	edge, typeName string, depth, optional int32) *qcode.Node {

	tq.id++
	step := dir.String() + "_" + edge
	n := &qcode.Node{
		ID:        tq.id,
		Path:      append(append([]string{}, parent.Path...), step),
		Kind:      kind,
		Direction: dir,
		EdgeName:  edge,
		Depth:     depth,
		Parent:    parent,
	}
	if kind == qcode.BlockRecurse {
		parent.Recursions = append(parent.Recursions, n)
	} else {
		parent.Children = append(parent.Children, n)
	}
	tq.qc.Location[n.PathKey()] = qcode.LocationInfo{TypeName: typeName, OptionalDepth: optional}
	return n
}

func (tq *testQuery) traverse(parent *qcode.Node, edge, typeName string) *qcode.Node {
	return tq.addNode(parent, qcode.BlockTraverse, qcode.DirOut, edge, typeName, 0, 0)
}

func (tq *testQuery) optional(parent *qcode.Node, edge, typeName string) *qcode.Node {
	return tq.addNode(parent, qcode.BlockTraverse, qcode.DirOut, edge, typeName, 0, 1)
}

func (tq *testQuery) recurse(parent *qcode.Node, dir qcode.Direction, edge, typeName string, depth int32) *qcode.Node {
	return tq.addNode(parent, qcode.BlockRecurse, dir, edge, typeName, depth, 0)
}

func (tq *testQuery) output(n *qcode.Node, alias, field, typ string) {
	pk := n.PathKey()
	tq.qc.Outputs[pk] = append(tq.qc.Outputs[pk], qcode.OutputField{
		Alias: alias, Path: pk, FieldName: field, Type: typ,
	})
}

func (tq *testQuery) tag(n *qcode.Node, name, field string) {
	pk := n.PathKey()
	tq.qc.Tags[pk] = append(tq.qc.Tags[pk], qcode.TagField{
		Name: name, Path: pk, FieldName: field,
	})
}

func (tq *testQuery) filter(n *qcode.Node, ex *qcode.Exp) {
	pk := n.PathKey()
	tq.qc.Filters[pk] = append(tq.qc.Filters[pk], qcode.Filter{Path: pk, Exp: ex})
}

func compileTest(t *testing.T, tq *testQuery, conf Config) (string, Metadata) {
	t.Helper()
	schema, err := sdata.GetTestSchema()
	if err != nil {
		t.Fatal(err)
	}
	if err := tq.qc.Validate(); err != nil {
		t.Fatal(err)
	}
	co, err := NewCompiler(schema, conf)
	if err != nil {
		t.Fatal(err)
	}
	var w bytes.Buffer
	md, err := co.Compile(&w, tq.qc)
	if err != nil {
		t.Fatal(err)
	}
	return w.String(), md
}

func compileTestErr(t *testing.T, tq *testQuery, conf Config) error {
	t.Helper()
	schema, err := sdata.GetTestSchema()
	if err != nil {
		t.Fatal(err)
	}
	co, err := NewCompiler(schema, conf)
	if err != nil {
		t.Fatal(err)
	}
	var w bytes.Buffer
	_, err = co.Compile(&w, tq.qc)
	if err == nil {
		t.Fatalf("expected compile error, got: %s", w.String())
	}
	return err
}
