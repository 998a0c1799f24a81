package sdata

import (
	"strings"
)

type JoinSide int

const (
	SideOuter JoinSide = iota
	SideInner
)

// JoinCol is one end of a join condition. Side says which of the two
// aliases in play the column belongs to.
type JoinCol struct {
	Side JoinSide
	Col  DBColumn
}

// JoinPair is a single equality join condition. Right is always the column
// that owns the foreign key, Left the column it references.
type JoinPair struct {
	Left  JoinCol
	Right JoinCol
}

type RelKind int

const (
	RelNone RelKind = iota
	RelDirect
	RelJunction
)

// TableEdge is a resolved edge between two tables. Direct edges carry a
// single join pair. Junction edges carry the junction table plus the pair
// joining the outer table to the junction and the pair joining the junction
// to the inner table.
type TableEdge struct {
	Kind      RelKind
	Pair      JoinPair
	Junction  DBTable
	OuterPair JoinPair
	InnerPair JoinPair
}

// ResolveEdge maps an edge traversal onto the physical join that implements
// it. Resolution happens in two phases:
//
//  1. Junction lookup. The edge resolves through a junction table when a
//     table named after the edge exists (animal_friendswith), or one named
//     after the edge plus the destination type (animal_eats_food). Finding
//     both is a fatal ambiguity.
//  2. Direct foreign keys between the two tables. When several keys match,
//     only those named <edge-suffix>_id survive, and a remaining tie is
//     broken by the traversal direction. Multiple self-referencing keys on
//     one table are the usual source of such ties.
func ResolveEdge(s *DBSchema, outer, inner DBTable, edgeName, typeName string, dirIn bool) (TableEdge, error) {
	te, err := resolveJunction(s, outer, inner, edgeName, typeName, dirIn)
	if err != nil {
		return TableEdge{}, err
	}
	if te.Kind == RelJunction {
		return te, nil
	}
	pair, err := resolveDirect(outer, inner, edgeName, dirIn)
	if err != nil {
		return TableEdge{}, err
	}
	return TableEdge{Kind: RelDirect, Pair: pair}, nil
}

func resolveJunction(s *DBSchema, outer, inner DBTable, edgeName, typeName string, dirIn bool) (TableEdge, error) {
	shortName := strings.ToLower(edgeName)
	longName := strings.ToLower(edgeName + "_" + typeName)
	hasShort := s.HasTable(shortName)
	hasLong := s.HasTable(longName)

	if !hasShort && !hasLong {
		return TableEdge{}, nil
	}
	if hasShort && hasLong {
		return TableEdge{}, &SchemaError{
			Edge:   edgeName,
			Type:   typeName,
			Reason: "ambiguous junction tables " + shortName + " and " + longName,
		}
	}

	name := shortName
	if hasLong {
		name = longName
	}
	jt, err := s.GetTable(name)
	if err != nil {
		return TableEdge{}, err
	}

	parts := strings.SplitN(edgeName, "_", 2)
	if len(parts) != 2 {
		return TableEdge{}, &SchemaError{Edge: edgeName, Reason: "invalid edge name"}
	}
	outerPrefix := strings.ToLower(parts[0])
	innerPrefix := strings.ToLower(parts[1])
	if dirIn {
		outerPrefix, innerPrefix = innerPrefix, outerPrefix
	}

	outerPair, err := junctionPair(outer, jt, edgeName, outerPrefix)
	if err != nil {
		return TableEdge{}, err
	}
	innerPair, err := junctionPair(jt, inner, edgeName, innerPrefix)
	if err != nil {
		return TableEdge{}, err
	}
	return TableEdge{
		Kind:      RelJunction,
		Junction:  jt,
		OuterPair: outerPair,
		InnerPair: innerPair,
	}, nil
}

// junctionPair picks the join pair between one leg of a junction edge and
// the junction table itself. Self-referencing junctions carry two keys back
// to the same table so the foreign key column prefix decides the leg.
func junctionPair(left, right DBTable, edgeName, prefix string) (JoinPair, error) {
	pairs := directPairs(left, right)
	if len(pairs) == 1 {
		return pairs[0], nil
	}
	if len(pairs) == 2 {
		var matched []JoinPair
		for _, p := range pairs {
			if strings.HasPrefix(strings.ToLower(p.Right.Col.Name), prefix) {
				matched = append(matched, p)
			}
		}
		if len(matched) == 1 {
			return matched[0], nil
		}
	}
	return JoinPair{}, &SchemaError{
		Edge:   edgeName,
		Table:  right.Name,
		Reason: "no unique junction join condition",
	}
}

func resolveDirect(outer, inner DBTable, edgeName string, dirIn bool) (JoinPair, error) {
	pairs := directPairs(outer, inner)
	if len(pairs) == 1 {
		return pairs[0], nil
	}
	if len(pairs) > 1 && strings.EqualFold(outer.Name, inner.Name) {
		return filterByDirection(pairs, edgeName, dirIn)
	}

	parts := strings.Split(edgeName, "_")
	if len(parts) < 2 {
		return JoinPair{}, &SchemaError{Edge: edgeName, Reason: "invalid edge name"}
	}
	colName := strings.ToLower(parts[1]) + "_id"
	var matched []JoinPair
	for _, p := range pairs {
		if strings.EqualFold(p.Right.Col.Name, colName) {
			matched = append(matched, p)
		}
	}
	switch len(matched) {
	case 0:
		return JoinPair{}, &SchemaError{
			Edge:   edgeName,
			Table:  inner.Name,
			Field:  colName,
			Reason: "no join condition",
		}
	case 1:
		return matched[0], nil
	}
	return filterByDirection(matched, edgeName, dirIn)
}

// filterByDirection breaks a tie between two orientations of the same
// foreign key. Outbound traversals keep the key living on the inner alias,
// inbound ones the key living on the outer alias.
func filterByDirection(pairs []JoinPair, edgeName string, dirIn bool) (JoinPair, error) {
	wantRight := SideInner
	if dirIn {
		wantRight = SideOuter
	}
	var matched []JoinPair
	for _, p := range pairs {
		if p.Right.Side == wantRight {
			matched = append(matched, p)
		}
	}
	if len(matched) != 1 {
		return JoinPair{}, &SchemaError{
			Edge:   edgeName,
			Reason: "ambiguous join condition",
		}
	}
	return matched[0], nil
}

// directPairs lists every foreign-key-derived join between two tables, one
// pair per key column. When the two sides are the same table each key shows
// up in both orientations.
func directPairs(outer, inner DBTable) []JoinPair {
	var pairs []JoinPair
	for _, fc := range inner.Columns {
		if fc.FKeyTable == "" || !strings.EqualFold(fc.FKeyTable, outer.Name) {
			continue
		}
		tc, ok := outer.GetColumn(fc.FKeyCol)
		if !ok {
			continue
		}
		pairs = append(pairs, JoinPair{
			Left:  JoinCol{Side: SideOuter, Col: tc},
			Right: JoinCol{Side: SideInner, Col: fc},
		})
	}
	for _, fc := range outer.Columns {
		if fc.FKeyTable == "" || !strings.EqualFold(fc.FKeyTable, inner.Name) {
			continue
		}
		tc, ok := inner.GetColumn(fc.FKeyCol)
		if !ok {
			continue
		}
		pairs = append(pairs, JoinPair{
			Left:  JoinCol{Side: SideInner, Col: tc},
			Right: JoinCol{Side: SideOuter, Col: fc},
		})
	}
	return pairs
}
