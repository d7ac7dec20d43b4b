// Package catalog holds table schemas and file-mapping metadata (spec.md
// §3.6–§3.8): the database object consumed by scan operators and the
// semantic validator.
package catalog

import "github.com/fuersten/csvsqldb-sub001/value"

// Column describes one column of a table schema (spec.md §3.6).
type Column struct {
	Name         string     `yaml:"name"`
	Type         value.Type `yaml:"type"`
	PrimaryKey   bool       `yaml:"primary_key,omitempty"`
	Unique       bool       `yaml:"unique,omitempty"`
	NotNull      bool       `yaml:"not_null,omitempty"`
	Default      string     `yaml:"default,omitempty"`
	HasDefault   bool       `yaml:"has_default,omitempty"`
	Check        string     `yaml:"check,omitempty"`
	Length       int        `yaml:"length,omitempty"`
}

// TableSchema describes one table: its ordered columns and table-level
// constraints (spec.md §3.6). CREATE TABLE constraint clauses are retained
// even though this core never writes rows, since DDL metadata is not
// excluded by spec.md's Non-goals (only INSERT/UPDATE/DELETE are).
type TableSchema struct {
	Name             string   `yaml:"name"`
	Columns          []Column `yaml:"columns"`
	PrimaryKeyCols   []string `yaml:"primary_key_columns,omitempty"`
	UniqueCols       []string `yaml:"unique_columns,omitempty"`
	TableCheck       string   `yaml:"table_check,omitempty"`
}

// ColumnIndex returns the position of name in the schema, or -1.
func (t *TableSchema) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the column definition for name, if present.
func (t *TableSchema) Column(name string) (Column, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return Column{}, false
	}
	return t.Columns[i], true
}

// ColumnNames returns the ordered list of column names.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
