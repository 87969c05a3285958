// Package probe profiles flattened input records before they are normalized.
//
// A profile lists every flattened path seen in a sample with how many records
// carry a value for it, a bounded distinct count and a coarse inferred type.
// It also names the expected paths that never appear, which is the usual
// reason a scrape fails to normalize.
package probe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"prep/internal/record"
)

// distinctCapPerColumn bounds the distinct set kept per path. High
// cardinality paths (hrefs, ids) stop counting once they reach it.
const distinctCapPerColumn = 10_000

// Coarse type labels reported per path.
const (
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeText    = "text"
)

// Column is the profile of one flattened path.
type Column struct {
	Path string

	// Present counts records with a non-null, non-blank value. It is the
	// denominator for Ratio, not the sample size.
	Present int

	// Distinct is capped at distinctCapPerColumn; Capped reports the cap.
	Distinct int
	Capped   bool

	Type string
}

// Ratio is Distinct/Present, or 0 when the path never had a value.
func (c Column) Ratio() float64 {
	if c.Present <= 0 {
		return 0
	}
	return float64(c.Distinct) / float64(c.Present)
}

// Report is the profile of a sample.
type Report struct {
	Records int

	// Columns is in first-seen path order.
	Columns []Column

	// Missing lists expected paths absent from every record, in the order
	// they were expected.
	Missing []string
}

// Column returns the profile for path.
func (r Report) Column(path string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Path == path {
			return c, true
		}
	}
	return Column{}, false
}

type columnState struct {
	present  int
	capped   bool
	distinct map[string]struct{}

	seen     bool
	allInt   bool
	allFloat bool
	allBool  bool
}

// Profile builds a Report over recs. expected names the paths a consumer
// reads; those never seen end up in Report.Missing.
//
// Edge cases:
//   - nil records are skipped and not counted.
//   - Null and whitespace-only values do not count toward Present.
//   - A path with no values is reported with Type "text".
func Profile(recs []*record.Flat, expected []string) Report {
	var (
		order  []string
		states = make(map[string]*columnState)
		rep    Report
	)

	for _, rec := range recs {
		if rec == nil {
			continue
		}
		rep.Records++

		for _, path := range rec.Paths() {
			st, ok := states[path]
			if !ok {
				st = &columnState{
					distinct: make(map[string]struct{}),
					allInt:   true,
					allFloat: true,
					allBool:  true,
				}
				states[path] = st
				order = append(order, path)
			}

			v, _ := rec.Get(path)
			s := strings.TrimSpace(record.ScalarText(v))
			if v == nil || s == "" {
				continue
			}
			st.present++
			st.observe(v, s)

			if st.capped {
				continue
			}
			st.distinct[s] = struct{}{}
			if len(st.distinct) >= distinctCapPerColumn {
				st.capped = true
				st.distinct = nil
			}
		}
	}

	rep.Columns = make([]Column, 0, len(order))
	for _, path := range order {
		st := states[path]
		c := Column{
			Path:    path,
			Present: st.present,
			Capped:  st.capped,
			Type:    st.inferred(),
		}
		if st.capped {
			c.Distinct = distinctCapPerColumn
		} else {
			c.Distinct = len(st.distinct)
		}
		rep.Columns = append(rep.Columns, c)
	}

	for _, path := range expected {
		if _, ok := states[path]; !ok {
			rep.Missing = append(rep.Missing, path)
		}
	}
	return rep
}

func (st *columnState) observe(v any, s string) {
	st.seen = true
	if _, ok := v.(bool); !ok {
		st.allBool = false
	}
	if st.allInt {
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			st.allInt = false
		}
	}
	if st.allFloat {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			st.allFloat = false
		}
	}
}

func (st *columnState) inferred() string {
	if !st.seen {
		return TypeText
	}
	// Prefer more specific types.
	switch {
	case st.allBool:
		return TypeBoolean
	case st.allInt:
		return TypeInteger
	case st.allFloat:
		return TypeFloat
	default:
		return TypeText
	}
}

// Format renders r as a tab-separated table, lowest uniqueness first, followed
// by a line naming missing paths.
func (r Report) Format() string {
	if r.Records <= 0 {
		return "probe: no records sampled"
	}

	cols := make([]Column, len(r.Columns))
	copy(cols, r.Columns)
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Ratio() == cols[j].Ratio() {
			return cols[i].Path < cols[j].Path
		}
		return cols[i].Ratio() < cols[j].Ratio()
	})

	var b strings.Builder
	fmt.Fprintf(&b, "probe report:\trecords=%d\tpaths=%d\n", r.Records, len(r.Columns))
	fmt.Fprintf(&b, "%-24s\t%-7s\t%-7s\t%-7s\tratio\tcapped\n", "path", "type", "unique", "rows")
	for _, c := range cols {
		fmt.Fprintf(&b, "%-24s\t%-7s\t%-7d\t%-7d\t%.1f%%\t%t\n",
			c.Path, c.Type, c.Distinct, c.Present, c.Ratio()*100, c.Capped)
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, "missing: %s\n", strings.Join(r.Missing, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
