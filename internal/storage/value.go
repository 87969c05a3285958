package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeValue converts an in-memory cell to a value every database/sql
// driver and pgx accept for the column's logical type.
//
// Raw checkpoint stages carry json.Number, bool and nil; typed stages carry
// int64 and string. Values that cannot be represented in the logical type
// are stored as their text form in string columns and rejected elsewhere.
func NormalizeValue(typ string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch typ {
	case TypeString:
		return textOf(v), nil

	case TypeInteger:
		switch t := v.(type) {
		case int:
			return int64(t), nil
		case int32:
			return int64(t), nil
		case int64:
			return t, nil
		case json.Number:
			return t.Int64()
		case string:
			return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		}

	case TypeNumber:
		switch t := v.(type) {
		case int:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case float64:
			return t, nil
		case json.Number:
			return t.Float64()
		}

	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}

	return nil, fmt.Errorf("storage: cannot store %T as %s", v, typ)
}

// NormalizeRows applies NormalizeValue per column and returns a new slice.
func NormalizeRows(spec TableSpec, rows [][]any) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, row := range rows {
		nr := make([]any, len(row))
		for j, v := range row {
			nv, err := NormalizeValue(spec.Columns[j].Type, v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, spec.Columns[j].Name, err)
			}
			nr[j] = nv
		}
		out[i] = nr
	}
	return out, nil
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
