package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"prep/internal/config"
	"prep/internal/record"
)

// runStream runs StreamRecords in a goroutine, closes out when done, and
// returns the emitted records encoded as JSON, the error and parse-error
// callbacks.
func runStream(ctx context.Context, input string, opts config.Options) (got []string, lines []int, err error, parseErrCalls []string) {
	out := make(chan record.Raw, 4)
	onParseErr := func(line int, e error) {
		parseErrCalls = append(parseErrCalls, fmt.Sprintf("line=%d err=%s", line, e.Error()))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		err = StreamRecords(ctx, strings.NewReader(input), opts, out, onParseErr)
		close(out)
	}()

	for r := range out {
		b, mErr := json.Marshal(r.Value)
		if mErr != nil {
			panic(mErr)
		}
		got = append(got, string(b))
		lines = append(lines, r.Line)
	}
	<-done
	return got, lines, err, parseErrCalls
}

func TestStreamRecords_RootArrayKeepsKeyOrderAndTrailingJSONL(t *testing.T) {
	t.Parallel()

	input := `[
	  {"href": "/a/b/c/d/1", "competition_code": "GB1", "goals": "", "for": {"href": "/x/y/z/w/9"}},
	  null,
	  {"minutes_played": "45'", "assists": 2}
	]
	{"tail": true}`

	got, lines, err, calls := runStream(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("StreamRecords err=%v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("unexpected parse errors: %v", calls)
	}
	want := []string{
		`{"href":"/a/b/c/d/1","competition_code":"GB1","goals":"","for":{"href":"/x/y/z/w/9"}}`,
		`{"minutes_played":"45'","assists":2}`,
		`{"tail":true}`,
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("records=\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if fmt.Sprint(lines) != "[1 2 3]" {
		t.Fatalf("lines=%v, want [1 2 3]", lines)
	}
}

func TestStreamRecords_NumbersStayExact(t *testing.T) {
	t.Parallel()

	out := make(chan record.Raw, 1)
	if err := StreamRecords(context.Background(), strings.NewReader(`[{"game_id": 3061234}]`), nil, out, nil); err != nil {
		t.Fatalf("StreamRecords: %v", err)
	}
	r := <-out
	v, _ := r.Value.Get("game_id")
	if n, ok := v.ScalarValue().(json.Number); !ok || n.String() != "3061234" {
		t.Fatalf("game_id=%#v, want json.Number 3061234", v.ScalarValue())
	}
}

func TestStreamRecords_Envelope(t *testing.T) {
	t.Parallel()

	input := `{"meta": {"page": 1}, "items": [{"a": 1}, {"a": 2}], "after": [1, [2, {"x": 3}]]}`

	got, _, err, _ := runStream(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("StreamRecords err=%v", err)
	}
	if strings.Join(got, ",") != `{"a":1},{"a":2}` {
		t.Fatalf("records=%v", got)
	}
}

func TestStreamRecords_EnvelopeRecordsKey(t *testing.T) {
	t.Parallel()

	input := `{"tags": [{"t": "skip"}], "appearances": [{"a": 1}]}`

	got, _, err, _ := runStream(context.Background(), input, config.Options{"records_key": "appearances"})
	if err != nil {
		t.Fatalf("StreamRecords err=%v", err)
	}
	// Arrays other than records_key are not streamed.
	if len(got) != 1 || got[0] != `{"a":1}` {
		t.Fatalf("records=%v, want [{\"a\":1}]", got)
	}
}

func TestStreamRecords_SingleObject(t *testing.T) {
	t.Parallel()

	got, _, err, _ := runStream(context.Background(), `{"player": {"href": "/p"}, "red": null}`, nil)
	if err != nil {
		t.Fatalf("StreamRecords err=%v", err)
	}
	if len(got) != 1 || got[0] != `{"player":{"href":"/p"},"red":null}` {
		t.Fatalf("records=%v", got)
	}
}

func TestStreamRecords_HeaderMap(t *testing.T) {
	t.Parallel()

	opts := config.Options{"header_map": map[string]any{"Competition": "competition_code"}}
	got, _, err, _ := runStream(context.Background(), `[{"Competition": "GB1", "x": 1}]`, opts)
	if err != nil {
		t.Fatalf("StreamRecords err=%v", err)
	}
	if len(got) != 1 || got[0] != `{"competition_code":"GB1","x":1}` {
		t.Fatalf("records=%v", got)
	}
}

func TestStreamRecords_Empty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "  \n", "[]"} {
		got, _, err, _ := runStream(context.Background(), in, nil)
		if err != nil || len(got) != 0 {
			t.Fatalf("input %q: records=%v err=%v, want none", in, got, err)
		}
	}
}

func TestStreamRecords_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan record.Raw)
	err := StreamRecords(ctx, strings.NewReader(`[{"a": 1}, {"a": 2}]`), nil, out, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestStreamRecords_ErrorPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"scalar_root", `42`, "unsupported root token"},
		{"array_of_scalars", `[1]`, "not an object"},
		{"truncated", `[{"a": 1}, {"a": `, "json:"},
		{"trailing_scalar", `[{"a": 1}] 7`, "trailing value not an object"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err, calls := runStream(context.Background(), tc.input, nil)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v, want containing %q", err, tc.wantErr)
			}
			if len(calls) != 1 {
				t.Fatalf("parse error callbacks=%v, want exactly one", calls)
			}
		})
	}
}
