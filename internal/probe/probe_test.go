package probe

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"prep/internal/record"
)

func flat(t *testing.T, paths []string, values ...any) *record.Flat {
	t.Helper()
	f := record.NewFlat(len(paths))
	for i, p := range paths {
		if err := f.Set(p, values[i]); err != nil {
			t.Fatalf("Set(%q): %v", p, err)
		}
	}
	return f
}

func TestProfile_CountsAndTypes(t *testing.T) {
	t.Parallel()

	paths := []string{"competition_code", "goals", "rating", "starter", "parent.href"}
	recs := []*record.Flat{
		flat(t, paths, "GB1", "1", json.Number("6.5"), true, "/p/1"),
		flat(t, paths, "GB1", "", json.Number("7"), false, "/p/2"),
		nil,
		flat(t, paths, " GB1 ", nil, json.Number("8"), true, "   "),
	}

	rep := Profile(recs, []string{"parent.href", "for.href"})
	if rep.Records != 3 {
		t.Fatalf("records=%d, want 3", rep.Records)
	}

	tests := []struct {
		path     string
		present  int
		distinct int
		typ      string
	}{
		{"competition_code", 3, 1, TypeText},
		{"goals", 1, 1, TypeInteger},
		{"rating", 3, 3, TypeFloat},
		{"starter", 3, 2, TypeBoolean},
		{"parent.href", 2, 2, TypeText},
	}
	for _, tc := range tests {
		c, ok := rep.Column(tc.path)
		if !ok {
			t.Fatalf("column %q missing", tc.path)
		}
		if c.Present != tc.present || c.Distinct != tc.distinct || c.Type != tc.typ || c.Capped {
			t.Fatalf("%s=%+v, want present=%d distinct=%d type=%s", tc.path, c, tc.present, tc.distinct, tc.typ)
		}
	}

	var order []string
	for _, c := range rep.Columns {
		order = append(order, c.Path)
	}
	if !reflect.DeepEqual(order, paths) {
		t.Fatalf("order=%v, want %v", order, paths)
	}
	if !reflect.DeepEqual(rep.Missing, []string{"for.href"}) {
		t.Fatalf("missing=%v, want [for.href]", rep.Missing)
	}
}

func TestProfile_EmptyColumnIsText(t *testing.T) {
	t.Parallel()

	rep := Profile([]*record.Flat{flat(t, []string{"goals"}, "")}, nil)
	c, _ := rep.Column("goals")
	if c.Present != 0 || c.Type != TypeText || c.Ratio() != 0 {
		t.Fatalf("goals=%+v ratio=%v", c, c.Ratio())
	}
}

func TestProfile_DistinctIsCapped(t *testing.T) {
	t.Parallel()

	recs := make([]*record.Flat, 0, distinctCapPerColumn+5)
	for i := 0; i < distinctCapPerColumn+5; i++ {
		recs = append(recs, flat(t, []string{"href"}, fmt.Sprintf("/g/%d", i)))
	}

	c, _ := Profile(recs, nil).Column("href")
	if !c.Capped || c.Distinct != distinctCapPerColumn || c.Present != distinctCapPerColumn+5 {
		t.Fatalf("href=%+v, want capped at %d", c, distinctCapPerColumn)
	}
}

func TestReport_Format(t *testing.T) {
	t.Parallel()

	if got := (Report{}).Format(); got != "probe: no records sampled" {
		t.Fatalf("empty Format=%q", got)
	}

	rep := Report{
		Records: 4,
		Columns: []Column{
			{Path: "href", Present: 4, Distinct: 4, Type: TypeText},
			{Path: "competition_code", Present: 4, Distinct: 1, Type: TypeText},
		},
		Missing: []string{"for.href", "goals"},
	}
	lines := strings.Split(rep.Format(), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines=%d, want 5:\n%s", len(lines), rep.Format())
	}
	if !strings.HasPrefix(lines[0], "probe report:\trecords=4\tpaths=2") {
		t.Fatalf("header=%q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "competition_code") || !strings.Contains(lines[2], "25.0%") {
		t.Fatalf("lowest-ratio row=%q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "href") || !strings.Contains(lines[3], "100.0%") {
		t.Fatalf("second row=%q", lines[3])
	}
	if lines[4] != "missing: for.href, goals" {
		t.Fatalf("missing line=%q", lines[4])
	}
}
