package qcode

import (
	"strings"
	"testing"
)

func animalRoot() (*QCode, *Node) {
	root := &Node{
		ID:   0,
		Path: []string{"Animal"},
		Kind: BlockRoot,
	}
	qc := &QCode{
		Root: root,
		Location: map[string]LocationInfo{
			"Animal": {TypeName: "Animal"},
		},
		Filters: map[string][]Filter{},
		Outputs: map[string][]OutputField{
			"Animal": {
				{Alias: "animal_name", Path: "Animal", FieldName: "name", Type: "text"},
			},
		},
		Tags: map[string][]TagField{},
	}
	return qc, root
}

func addChild(qc *QCode, parent *Node, step string, kind BlockKind, edge string) *Node {
	n := &Node{
		ID:       int32(len(qc.Location)),
		Path:     append(append([]string{}, parent.Path...), step),
		Kind:     kind,
		EdgeName: edge,
		Parent:   parent,
	}
	if kind == BlockRecurse {
		n.Depth = 1
		parent.Recursions = append(parent.Recursions, n)
	} else {
		parent.Children = append(parent.Children, n)
	}
	qc.Location[n.PathKey()] = LocationInfo{TypeName: "Animal"}
	return n
}

func TestValidate(t *testing.T) {
	qc, root := animalRoot()
	addChild(qc, root, "out_Animal_ParentOf", BlockTraverse, "Animal_ParentOf")
	if err := qc.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateDuplicatePath(t *testing.T) {
	qc, root := animalRoot()
	addChild(qc, root, "out_Animal_ParentOf", BlockTraverse, "Animal_ParentOf")
	c := addChild(qc, root, "x", BlockTraverse, "Animal_ParentOf")
	c.Path = []string{"Animal", "out_Animal_ParentOf"}
	err := qc.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate scope path") {
		t.Fatalf("expected duplicate path error, got %v", err)
	}
}

func TestValidateRecursionDepth(t *testing.T) {
	qc, root := animalRoot()
	r := addChild(qc, root, "out_Animal_ParentOf", BlockRecurse, "Animal_ParentOf")
	r.Depth = 0
	err := qc.Validate()
	if err == nil || !strings.Contains(err.Error(), "recursion depth") {
		t.Fatalf("expected recursion depth error, got %v", err)
	}
}

func TestValidateReservedAlias(t *testing.T) {
	qc, _ := animalRoot()
	qc.Outputs["Animal"] = append(qc.Outputs["Animal"], OutputField{
		Alias: "__depth", Path: "Animal", FieldName: "name", Type: "text",
	})
	err := qc.Validate()
	if err == nil || !strings.Contains(err.Error(), "reserved prefix") {
		t.Fatalf("expected reserved prefix error, got %v", err)
	}
}

func TestValidateUndefinedTag(t *testing.T) {
	qc, _ := animalRoot()
	qc.Filters["Animal"] = []Filter{
		{Path: "Animal", Exp: NewBinary(OpEquals, NewField("name"), NewTag("other_name"))},
	}
	err := qc.Validate()
	if err == nil || !strings.Contains(err.Error(), "undefined tag") {
		t.Fatalf("expected undefined tag error, got %v", err)
	}
}

func TestValidateTagDefinedAfterUse(t *testing.T) {
	qc, root := animalRoot()
	addChild(qc, root, "out_Animal_ParentOf", BlockTraverse, "Animal_ParentOf")
	late := addChild(qc, root, "out_Animal_FriendsWith", BlockTraverse, "Animal_FriendsWith")
	qc.Tags[late.PathKey()] = []TagField{
		{Name: "friend_name", Path: late.PathKey(), FieldName: "name"},
	}
	qc.Filters["Animal.out_Animal_ParentOf"] = []Filter{
		{
			Path: "Animal.out_Animal_ParentOf",
			Exp:  NewBinary(OpEquals, NewField("name"), NewTag("friend_name")),
		},
	}
	err := qc.Validate()
	if err == nil || !strings.Contains(err.Error(), "before its defining scope") {
		t.Fatalf("expected tag ordering error, got %v", err)
	}
}

func TestValidateOperandArity(t *testing.T) {
	qc, _ := animalRoot()
	qc.Filters["Animal"] = []Filter{
		{Path: "Animal", Exp: NewBinary(OpAnd, NewField("name"), nil)},
	}
	err := qc.Validate()
	if err == nil || !strings.Contains(err.Error(), "two operands") {
		t.Fatalf("expected arity error, got %v", err)
	}
}

func TestParseOp(t *testing.T) {
	cases := map[string]ExpOp{
		"=":             OpEquals,
		"eq":            OpEquals,
		"!=":            OpNotEquals,
		"<=":            OpLesserOrEquals,
		">":             OpGreaterThan,
		"has_substring": OpHasSubstring,
		"in":            OpIn,
		"not_in":        OpNotIn,
		"and":           OpAnd,
	}
	for s, want := range cases {
		op, err := ParseOp(s)
		if err != nil {
			t.Fatal(err)
		}
		if op != want {
			t.Fatalf("ParseOp(%q) = %s, want %s", s, op, want)
		}
	}
	if _, err := ParseOp("regex"); err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestNewBetween(t *testing.T) {
	ex := NewBetween(NewField("net_worth"), NewVar("lo"), NewVar("hi"))
	if ex.Op != OpAnd {
		t.Fatalf("expected lowered conjunction, got %s", ex.Op)
	}
	if ex.Left.Op != OpGreaterOrEquals || ex.Right.Op != OpLesserOrEquals {
		t.Fatalf("unexpected boundary operators: %s / %s", ex.Left.Op, ex.Right.Op)
	}
	if ex.Left.Left.FieldName != "net_worth" {
		t.Fatal("expected field operand on lower bound")
	}
}
