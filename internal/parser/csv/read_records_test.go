package csv

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"prep/internal/config"
	"prep/internal/record"
)

func readAll(t *testing.T, input string, opts config.Options) ([]string, error) {
	t.Helper()

	out := make(chan record.Raw, 16)
	err := ReadRecords(context.Background(), io.NopCloser(strings.NewReader(input)), opts, out, nil)
	close(out)

	var got []string
	for r := range out {
		b, mErr := json.Marshal(r.Value)
		if mErr != nil {
			t.Fatalf("marshal: %v", mErr)
		}
		got = append(got, string(b))
	}
	return got, err
}

func TestReadRecords_RebuildsNesting(t *testing.T) {
	t.Parallel()

	input := "\uFEFFhref,competition_code,player.href,goals\n" +
		"/a/b/c/d/1,GB1,/p/q/r/s/7,\n" +
		"/a/b/c/d/2,ES1,/p/q/r/s/8,2\n"

	got, err := readAll(t, input, nil)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	want := []string{
		`{"href":"/a/b/c/d/1","competition_code":"GB1","player":{"href":"/p/q/r/s/7"},"goals":""}`,
		`{"href":"/a/b/c/d/2","competition_code":"ES1","player":{"href":"/p/q/r/s/8"},"goals":"2"}`,
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("records=\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestReadRecords_Options(t *testing.T) {
	t.Parallel()

	opts := config.Options{
		"comma":         ";",
		"trim_space":    true,
		"empty_as_null": true,
		"header_map":    map[string]any{"Competition": "competition_code"},
	}
	got, err := readAll(t, "Competition;red\n GB1 ;\n", opts)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(got) != 1 || got[0] != `{"competition_code":"GB1","red":null}` {
		t.Fatalf("records=%v", got)
	}
}

func TestReadRecords_Empty(t *testing.T) {
	t.Parallel()

	got, err := readAll(t, "", nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("records=%v err=%v, want none", got, err)
	}
	got, err = readAll(t, "href,goals\n", nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("header only: records=%v err=%v, want none", got, err)
	}
}

func TestReadRecords_Errors(t *testing.T) {
	t.Parallel()

	var conflict *record.PathConflictError
	if _, err := readAll(t, "a,a.b\n1,2\n", nil); !errors.As(err, &conflict) {
		t.Fatalf("conflicting header err=%v, want PathConflictError", err)
	}

	var lines []int
	out := make(chan record.Raw, 4)
	err := ReadRecords(context.Background(), io.NopCloser(strings.NewReader("a,b\n1,2\n3\n")), nil, out,
		func(line int, err error) { lines = append(lines, line) })
	if err == nil {
		t.Fatalf("ragged row err=nil, want error")
	}
	if len(lines) != 1 || lines[0] != 3 {
		t.Fatalf("onErr lines=%v, want [3]", lines)
	}
}

func TestReadRecords_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan record.Raw)
	err := ReadRecords(ctx, io.NopCloser(strings.NewReader("a\n1\n")), nil, out, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
