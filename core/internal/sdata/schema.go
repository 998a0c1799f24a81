package sdata

import (
	"fmt"
	"strings"

	"github.com/gobuffalo/flect"
)

// DBColumn is one column of a table, including its foreign key target
// when the column references another table.
type DBColumn struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
	FKeyTable  string
	FKeyCol    string
}

// DBTable is the metadata for one physical table. Type is the schema type
// name the table backs; junction tables carry no type.
type DBTable struct {
	Schema  string
	Name    string
	Type    string
	Columns []DBColumn

	colIndex map[string]int
}

func NewDBTable(schema, name, typeName string, cols []DBColumn) DBTable {
	ti := DBTable{
		Schema:  schema,
		Name:    name,
		Type:    typeName,
		Columns: cols,
	}
	ti.colIndex = make(map[string]int, len(cols))
	for i, c := range cols {
		ti.colIndex[strings.ToLower(c.Name)] = i
	}
	return ti
}

func (ti DBTable) GetColumn(name string) (DBColumn, bool) {
	i, ok := ti.colIndex[strings.ToLower(name)]
	if !ok {
		return DBColumn{}, false
	}
	return ti.Columns[i], true
}

func (ti DBTable) String() string {
	return ti.Schema + "." + ti.Name
}

// DBSchema is the read-only table metadata one or more compilations run
// against. Tables are addressable by name and, for entity tables, by their
// schema type name.
type DBSchema struct {
	tables []DBTable
	byName map[string]int
	byType map[string]int
}

func NewDBSchema(tables []DBTable) (*DBSchema, error) {
	s := &DBSchema{
		byName: make(map[string]int, len(tables)),
		byType: make(map[string]int),
	}
	for _, ti := range tables {
		if ti.colIndex == nil {
			ti = NewDBTable(ti.Schema, ti.Name, ti.Type, ti.Columns)
		}
		name := strings.ToLower(ti.Name)
		if _, ok := s.byName[name]; ok {
			return nil, fmt.Errorf("duplicate table: %s", ti.Name)
		}
		s.tables = append(s.tables, ti)
		s.byName[name] = len(s.tables) - 1
		if ti.Type != "" {
			if _, ok := s.byType[ti.Type]; ok {
				return nil, fmt.Errorf("duplicate table for type: %s", ti.Type)
			}
			s.byType[ti.Type] = len(s.tables) - 1
		}
	}
	return s, nil
}

func (s *DBSchema) HasTable(name string) bool {
	_, ok := s.byName[strings.ToLower(name)]
	return ok
}

func (s *DBSchema) GetTable(name string) (DBTable, error) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return DBTable{}, &SchemaError{Table: name, Reason: "table not found"}
	}
	return s.tables[i], nil
}

// GetTableByType returns the table backing a schema type. Types without an
// explicit mapping fall back to the pluralized snake-case of the type name,
// e.g. Animal -> animals.
func (s *DBSchema) GetTableByType(typeName string) (DBTable, error) {
	if i, ok := s.byType[typeName]; ok {
		return s.tables[i], nil
	}
	name := flect.Pluralize(flect.Underscore(typeName))
	if i, ok := s.byName[name]; ok {
		return s.tables[i], nil
	}
	return DBTable{}, &SchemaError{Type: typeName, Reason: "no table for type"}
}

// SchemaError is a fatal compile-time schema-mapping failure. It carries
// the offending type, edge, table or field names so the caller can report
// what could not be resolved.
type SchemaError struct {
	Type   string
	Edge   string
	Table  string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason)
	if e.Type != "" {
		fmt.Fprintf(&b, ", type: %s", e.Type)
	}
	if e.Edge != "" {
		fmt.Fprintf(&b, ", edge: %s", e.Edge)
	}
	if e.Table != "" {
		fmt.Fprintf(&b, ", table: %s", e.Table)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ", field: %s", e.Field)
	}
	return b.String()
}
