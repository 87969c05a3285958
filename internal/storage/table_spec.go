package storage

import (
	"fmt"
	"strings"
)

// Logical column types. Backends map them onto their own SQL types.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeBoolean = "boolean"
)

// ColumnSpec describes one column of a table to create.
type ColumnSpec struct {
	Name string
	// Type is one of the logical Type* constants.
	Type     string
	Nullable bool
}

// TableSpec describes a table in backend-neutral terms.
//
// Name may be schema-qualified ("staging.prep"); backends that have no schema
// concept (sqlite) use it verbatim as a quoted identifier.
type TableSpec struct {
	Name       string
	Columns    []ColumnSpec
	PrimaryKey []string
}

// ColumnNames returns the column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks the spec is usable for DDL.
//
// Errors:
//   - empty table name, no columns, empty or duplicate column names
//   - unknown logical type
//   - primary key naming a column that is not declared
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("storage: table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("storage: table %s has no columns", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("storage: table %s has a column with empty name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("storage: table %s has duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true

		switch c.Type {
		case TypeInteger, TypeNumber, TypeString, TypeBoolean:
		default:
			return fmt.Errorf("storage: table %s column %s: unknown type %q", t.Name, c.Name, c.Type)
		}
	}

	for _, pk := range t.PrimaryKey {
		if !seen[pk] {
			return fmt.Errorf("storage: table %s primary key column %q is not declared", t.Name, pk)
		}
	}
	return nil
}

// CheckRows reports the first row whose width differs from the spec.
func (t TableSpec) CheckRows(rows [][]any) error {
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("storage: table %s row %d has %d values, want %d", t.Name, i+1, len(row), len(t.Columns))
		}
	}
	return nil
}

// TextTable returns a spec storing every column as a nullable string. It is
// used for stages whose columns are only known at run time.
func TextTable(name string, columns []string) TableSpec {
	spec := TableSpec{Name: name, Columns: make([]ColumnSpec, len(columns))}
	for i, c := range columns {
		spec.Columns[i] = ColumnSpec{Name: c, Type: TypeString, Nullable: true}
	}
	return spec
}
