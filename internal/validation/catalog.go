package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"prep/internal/frame"
	"prep/internal/transformer"
)

// ErrUnknownCheck is returned by Parse for an unrecognised check kind.
var ErrUnknownCheck = errors.New("validation: unknown check")

func pass() Result { return Result{Passed: true} }

func fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// NotEmpty fails on a table with no rows.
func NotEmpty() Check {
	return Func("not_empty", func(t *frame.Frame) Result {
		if t.Len() == 0 {
			return fail("table has no rows")
		}
		return pass()
	})
}

// Unique fails when two rows share the same values in columns.
func Unique(columns ...string) Check {
	name := "unique:" + strings.Join(columns, ",")
	return Func(name, func(t *frame.Frame) Result {
		idx, missing := indexes(t, columns)
		if missing != "" {
			return fail("column %q not found", missing)
		}

		seen := make(map[string]int, t.Len())
		key := make([]any, len(idx))
		for r, row := range t.Rows {
			for i, j := range idx {
				key[i] = row[j]
			}
			h := transformer.RowHash(key, transformer.HashSpec{})
			if first, dup := seen[h]; dup {
				return fail("rows %d and %d share %v", first+1, r+1, key)
			}
			seen[h] = r
		}
		return pass()
	})
}

// Range fails when an integer column holds a value outside [lo, hi]. Nulls
// are skipped; non-integer values fail.
func Range(column string, lo, hi int64) Check {
	name := fmt.Sprintf("range:%s:%d:%d", column, lo, hi)
	return Func(name, func(t *frame.Frame) Result {
		i := t.Index(column)
		if i < 0 {
			return fail("column %q not found", column)
		}
		for r, row := range t.Rows {
			if row[i] == nil {
				continue
			}
			n, ok := asInt64(row[i])
			if !ok {
				return fail("row %d: %v is not an integer", r+1, row[i])
			}
			if n < lo || n > hi {
				return fail("row %d: %d outside [%d, %d]", r+1, n, lo, hi)
			}
		}
		return pass()
	})
}

// NotConstant fails when every row holds the same value in column. Tables
// with fewer than two rows pass.
func NotConstant(column string) Check {
	return Func("not_constant:"+column, func(t *frame.Frame) Result {
		vals, ok := t.Column(column)
		if !ok {
			return fail("column %q not found", column)
		}
		if len(vals) < 2 {
			return pass()
		}
		first := transformer.RowHash(vals[:1], transformer.HashSpec{})
		for _, v := range vals[1:] {
			if transformer.RowHash([]any{v}, transformer.HashSpec{}) != first {
				return pass()
			}
		}
		return fail("all %d rows hold %v", len(vals), vals[0])
	})
}

// Parse builds a catalog check from its textual form:
//
//	not_empty
//	unique:<col>[,<col>...]
//	range:<col>:<min>:<max>
//	not_constant:<col>
//
// Errors:
//   - ErrUnknownCheck (wrapped) for an unrecognised kind
//   - malformed arguments
func Parse(spec string) (Check, error) {
	spec = strings.TrimSpace(spec)
	kind, args, _ := strings.Cut(spec, ":")

	switch kind {
	case "not_empty":
		if args != "" {
			return nil, fmt.Errorf("validation: %q takes no arguments", kind)
		}
		return NotEmpty(), nil

	case "unique":
		cols := splitColumns(args)
		if len(cols) == 0 {
			return nil, fmt.Errorf("validation: %q needs at least one column", spec)
		}
		return Unique(cols...), nil

	case "range":
		parts := strings.Split(args, ":")
		if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("validation: %q: want range:<col>:<min>:<max>", spec)
		}
		lo, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("validation: %q: min: %w", spec, err)
		}
		hi, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("validation: %q: max: %w", spec, err)
		}
		if lo > hi {
			return nil, fmt.Errorf("validation: %q: min > max", spec)
		}
		return Range(strings.TrimSpace(parts[0]), lo, hi), nil

	case "not_constant":
		col := strings.TrimSpace(args)
		if col == "" || strings.Contains(col, ",") {
			return nil, fmt.Errorf("validation: %q needs exactly one column", spec)
		}
		return NotConstant(col), nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownCheck, kind)
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func indexes(t *frame.Frame, columns []string) (idx []int, missing string) {
	idx = make([]int, len(columns))
	for i, c := range columns {
		j := t.Index(c)
		if j < 0 {
			return nil, c
		}
		idx[i] = j
	}
	return idx, ""
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}
