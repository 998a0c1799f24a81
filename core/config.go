package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jb-kensho/graphql-compiler/core/internal/sdata"
)

// SupportedDBTypes lists the backends queries can be compiled for
var SupportedDBTypes = []string{"postgres", "mysql", "sqlite", "mssql"}

// Config holds the compiler settings. An empty config is usable and
// compiles for postgres.
type Config struct {
	// Database backend to emit SQL for. Defaults to postgres
	DBType string `mapstructure:"db_type" json:"db_type" yaml:"db_type" jsonschema:"title=Database Type,enum=postgres,enum=mysql,enum=sqlite,enum=mssql"`

	// Database version, used where emission differs across versions
	DBVersion int `mapstructure:"db_version" json:"db_version" yaml:"db_version" jsonschema:"title=Database Version"`

	// Set operator joining the anchor and recursive steps of recursive
	// CTEs. Defaults to the backend's preferred combinator
	RecursionCombinator string `mapstructure:"recursion_combinator" json:"recursion_combinator" yaml:"recursion_combinator" jsonschema:"title=Recursion Combinator,enum=union,enum=union_all"`

	// Variables preset here are inlined as literals instead of becoming
	// query parameters
	Vars map[string]string `mapstructure:"variables" json:"variables" yaml:"variables" jsonschema:"title=Preset Variables"`

	// DisableCache turns off the compiled-query cache
	DisableCache bool `mapstructure:"disable_cache" json:"disable_cache" yaml:"disable_cache" jsonschema:"title=Disable Cache,default=false"`

	// CacheSize is the compiled-query cache capacity, default 5000
	CacheSize int `mapstructure:"cache_size" json:"cache_size" yaml:"cache_size" jsonschema:"title=Cache Size"`
}

// ValidateDBType checks if the given database type is supported
func ValidateDBType(dbType string) error {
	if dbType == "" {
		return nil // Empty defaults to postgres, which is valid
	}
	for _, t := range SupportedDBTypes {
		if strings.EqualFold(dbType, t) {
			return nil
		}
	}
	return fmt.Errorf("unsupported database type %q: supported types are %s",
		dbType, strings.Join(SupportedDBTypes, ", "))
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := ValidateDBType(c.DBType); err != nil {
		return err
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// Schema describes the tables compilation runs against. It is plain data
// and loads from YAML or JSON; tests and callers without live database
// introspection build schemas this way.
type Schema struct {
	// Database schema the tables live in, default public
	Name   string  `mapstructure:"schema" json:"schema,omitempty" yaml:"schema,omitempty"`
	Tables []Table `mapstructure:"tables" json:"tables" yaml:"tables"`
}

// Table is one physical table. Type names the schema type the table backs;
// when empty, entity tables are still reachable through the pluralized
// snake-case of the type name, and junction tables are reachable by name
// only.
type Table struct {
	Name    string   `mapstructure:"name" json:"name" yaml:"name"`
	Type    string   `mapstructure:"type" json:"type,omitempty" yaml:"type,omitempty"`
	Columns []Column `mapstructure:"columns" json:"columns" yaml:"columns"`
}

// Column is one table column. References marks it a foreign key, written
// as "table.column".
type Column struct {
	Name       string `mapstructure:"name" json:"name" yaml:"name"`
	Type       string `mapstructure:"type" json:"type" yaml:"type"`
	NotNull    bool   `mapstructure:"not_null" json:"not_null,omitempty" yaml:"not_null,omitempty"`
	PrimaryKey bool   `mapstructure:"primary_key" json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	References string `mapstructure:"references" json:"references,omitempty" yaml:"references,omitempty"`
}

// NewSchema parses a schema definition from YAML or JSON
func NewSchema(b []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &s, nil
}

// ReadInSchema reads and parses a schema definition file
func ReadInSchema(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewSchema(b)
}

func (s *Schema) dbSchema() (*sdata.DBSchema, error) {
	schemaName := s.Name
	if schemaName == "" {
		schemaName = "public"
	}

	tables := make([]sdata.DBTable, 0, len(s.Tables))
	for _, t := range s.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("schema: table with no name")
		}
		cols := make([]sdata.DBColumn, 0, len(t.Columns))
		for _, c := range t.Columns {
			var fkTable, fkCol string
			if c.References != "" {
				p := strings.SplitN(c.References, ".", 2)
				if len(p) != 2 || p[0] == "" || p[1] == "" {
					return nil, fmt.Errorf("table %s, column %s: reference must be table.column, got %q",
						t.Name, c.Name, c.References)
				}
				fkTable, fkCol = p[0], p[1]
			}
			cols = append(cols, sdata.DBColumn{
				Name:       c.Name,
				Type:       c.Type,
				NotNull:    c.NotNull,
				PrimaryKey: c.PrimaryKey,
				FKeyTable:  fkTable,
				FKeyCol:    fkCol,
			})
		}
		tables = append(tables, sdata.NewDBTable(schemaName, t.Name, t.Type, cols))
	}
	return sdata.NewDBSchema(tables)
}
