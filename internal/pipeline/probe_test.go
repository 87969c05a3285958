package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"prep/internal/probe"
)

func TestProbe_ProfilesSourcePaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := basePipeline(writeFile(t, dir, "appearances.json", sampleJSON), filepath.Join(dir, "out.csv"))

	rep, err := NewDefaultRunner(nil).Probe(context.Background(), p, 0)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if rep.Records != 2 || len(rep.Missing) != 0 {
		t.Fatalf("records=%d missing=%v, want 2 and none", rep.Records, rep.Missing)
	}
	comp, ok := rep.Column("competition_code")
	if !ok || comp.Distinct != 2 || comp.Type != probe.TypeText {
		t.Fatalf("competition_code=%+v ok=%v", comp, ok)
	}
	goals, _ := rep.Column("goals")
	if goals.Present != 1 || goals.Type != probe.TypeInteger {
		t.Fatalf("goals=%+v, want one integer value", goals)
	}

	if _, err := os.Stat(p.Output.Path); !os.IsNotExist(err) {
		t.Fatalf("probe wrote output: stat err=%v", err)
	}
}

func TestProbe_LimitAndMissingPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeFile(t, dir, "raw.json", `[{"href":"/x","competition_code":"GB1"},{"href":"/y","competition_code":"L1","for":{"href":"/c"}}]`)
	p := basePipeline(src, filepath.Join(dir, "out.csv"))

	rep, err := NewDefaultRunner(nil).Probe(context.Background(), p, 1)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if rep.Records != 1 {
		t.Fatalf("records=%d, want 1", rep.Records)
	}
	want := []string{
		"parent.href", "result.href", "for.href",
		"goals", "assists", "minutes_played", "yellow_cards", "second_yellow_cards", "red_cards",
	}
	if !reflect.DeepEqual(rep.Missing, want) {
		t.Fatalf("missing=%v, want %v", rep.Missing, want)
	}
}

func TestProbe_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	r := NewDefaultRunner(nil)
	if _, err := r.Probe(context.Background(), basePipeline(filepath.Join(dir, "nope.json"), ""), 0); err == nil {
		t.Fatalf("expected open error")
	}

	notObject := basePipeline(writeFile(t, dir, "scalars.json", `[1]`), "")
	_, err := r.Probe(context.Background(), notObject, 0)
	if err == nil {
		t.Fatalf("expected error for non-object record")
	}

	boom := errors.New("boom")
	r.OpenSource = func(string) (io.ReadCloser, error) { return nil, boom }
	if _, err := r.Probe(context.Background(), notObject, 0); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
}
