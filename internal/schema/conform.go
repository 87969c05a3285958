package schema

import (
	"fmt"
	"net/url"
	"strings"
)

// ConformError lists how a column set differs from the declared fields.
type ConformError struct {
	Missing    []string
	Unexpected []string
	// OutOfOrder is set when the names match but their order does not.
	OutOfOrder bool
}

func (e *ConformError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ","))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ","))
	}
	if e.OutOfOrder {
		parts = append(parts, "columns out of declared order")
	}
	return "schema: table does not conform: " + strings.Join(parts, "; ")
}

// Conform checks that columns are exactly the declared fields, in order.
func (s Schema) Conform(columns []string) error {
	declared := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Name] = true
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	e := &ConformError{}
	for _, f := range s.Fields {
		if !present[f.Name] {
			e.Missing = append(e.Missing, f.Name)
		}
	}
	for _, c := range columns {
		if !declared[c] {
			e.Unexpected = append(e.Unexpected, c)
		}
	}
	if len(e.Missing) == 0 && len(e.Unexpected) == 0 {
		for i, f := range s.Fields {
			if columns[i] != f.Name {
				e.OutOfOrder = true
				break
			}
		}
	}

	if len(e.Missing) > 0 || len(e.Unexpected) > 0 || e.OutOfOrder {
		return e
	}
	return nil
}

// CellError reports a value that does not match its field declaration.
type CellError struct {
	Row   int // 1-based
	Field string
	Value any
	Msg   string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("schema: row %d field %s: %s (value %#v)", e.Row, e.Field, e.Msg, e.Value)
}

// CheckRows verifies that every row value matches its field type and format.
// Rows must already be in declared field order (see Conform). nil values are
// accepted for all fields except primary key fields.
func (s Schema) CheckRows(rows [][]any) error {
	key := make(map[string]bool, len(s.PrimaryKey))
	for _, k := range s.PrimaryKey {
		key[k] = true
	}

	for r, row := range rows {
		if len(row) != len(s.Fields) {
			return &CellError{Row: r + 1, Msg: fmt.Sprintf("row has %d values, want %d", len(row), len(s.Fields))}
		}
		for i, f := range s.Fields {
			if msg := checkCell(f, row[i], key[f.Name]); msg != "" {
				return &CellError{Row: r + 1, Field: f.Name, Value: row[i], Msg: msg}
			}
		}
	}
	return nil
}

func checkCell(f Field, v any, required bool) string {
	if v == nil {
		if required {
			return "required value is null"
		}
		return ""
	}

	switch f.Type {
	case TypeInteger:
		switch v.(type) {
		case int, int32, int64:
		default:
			return fmt.Sprintf("want integer, got %T", v)
		}
	case TypeNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Sprintf("want number, got %T", v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("want boolean, got %T", v)
		}
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("want string, got %T", v)
		}
		if f.Format == FormatURI && !isAbsoluteURI(s) {
			return "not an absolute uri"
		}
	}
	return ""
}

func isAbsoluteURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
