package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"prep/internal/config"
	"prep/internal/frame"
	"prep/internal/schema"
	"prep/internal/storage"
	_ "prep/internal/storage/sqlite"
)

func rawFrame(rows ...[]any) *frame.Frame {
	f := frame.New("competition_code", "goals")
	f.Rows = rows
	return f
}

func TestMemory_Overwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	if err := m.Write(ctx, "prep", rawFrame([]any{"GB1", "1"}, []any{"L1", "2"})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := m.Write(ctx, "prep", rawFrame([]any{"ES1", "3"})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok := m.Get("prep")
	if !ok || got.Len() != 1 || got.Rows[0][0] != "ES1" {
		t.Fatalf("Get(prep)=%v,%v, want the second table", got, ok)
	}
	if names := m.Names(); !reflect.DeepEqual(names, []string{"prep"}) {
		t.Fatalf("Names()=%v", names)
	}
}

func TestMemory_DoesNotAliasRowSlice(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	src := rawFrame([]any{"GB1", "1"})
	_ = m.Write(context.Background(), "json_normalized", src)
	src.Rows = append(src.Rows, []any{"L1", "2"})

	got, _ := m.Get("json_normalized")
	if got.Len() != 1 {
		t.Fatalf("stored Len()=%d, want 1", got.Len())
	}
}

func TestValidName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "../x", "a b", "a.b"} {
		if err := (Nop{}).Write(context.Background(), name, rawFrame()); err == nil {
			t.Fatalf("Write(%q) err=nil, want error", name)
		}
	}
	if err := (Nop{}).Write(context.Background(), "json_normalized_filtered", rawFrame()); err != nil {
		t.Fatalf("Write(valid)=%v", err)
	}
}

func TestSinks_HonourCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, s := range []Sink{Nop{}, NewMemory(), Dir{Path: t.TempDir()}} {
		if err := s.Write(ctx, "prep", rawFrame()); !errors.Is(err, context.Canceled) {
			t.Fatalf("%T.Write err=%v, want context.Canceled", s, err)
		}
	}
}

func TestDir_WritesCSVAndOverwrites(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "checkpoints")
	d := Dir{Path: dir}
	ctx := context.Background()

	if err := d.Write(ctx, "json_normalized", rawFrame([]any{"GB1", json.Number("2")}, []any{"L1", nil})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := d.Write(ctx, "json_normalized", rawFrame([]any{"ES1", ""})); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "json_normalized.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got, want := string(b), "competition_code,goals\nES1,\n"; got != want {
		t.Fatalf("csv=%q, want %q", got, want)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only the checkpoint file", len(entries))
	}
}

type fakeRepo struct {
	specs []storage.TableSpec
	rows  [][][]any
	err   error
}

func (f *fakeRepo) Close() {}

func (f *fakeRepo) ReplaceTable(_ context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.specs = append(f.specs, spec)
	f.rows = append(f.rows, rows)
	return int64(len(rows)), nil
}

func prepSchema() schema.Schema {
	return schema.Schema{
		Fields: []schema.Field{
			{Name: "appearance_id", Type: schema.TypeInteger},
			{Name: "league_id", Type: schema.TypeString},
		},
		PrimaryKey: []string{"appearance_id"},
	}
}

func TestStore_TypedAndTextTables(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	s := &Store{Repo: repo, Prefix: "appearances_", Schemas: map[string]schema.Schema{"prep": prepSchema()}}
	ctx := context.Background()

	if err := s.Write(ctx, "json_normalized", rawFrame([]any{"GB1", "1"})); err != nil {
		t.Fatalf("Write(raw): %v", err)
	}
	prep := frame.New("appearance_id", "league_id")
	prep.Rows = [][]any{{int64(1), "GB1"}}
	if err := s.Write(ctx, "prep", prep); err != nil {
		t.Fatalf("Write(prep): %v", err)
	}

	if repo.specs[0].Name != "appearances_json_normalized" || repo.specs[0].Columns[1].Type != storage.TypeString {
		t.Fatalf("raw spec=%+v", repo.specs[0])
	}
	typed := repo.specs[1]
	if typed.Name != "appearances_prep" || typed.Columns[0].Type != storage.TypeInteger || !reflect.DeepEqual(typed.PrimaryKey, []string{"appearance_id"}) {
		t.Fatalf("typed spec=%+v", typed)
	}
}

func TestStore_RejectsNonConformingTable(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	s := &Store{Repo: repo, Schemas: map[string]schema.Schema{"prep": prepSchema()}}

	var ce *schema.ConformError
	err := s.Write(context.Background(), "prep", frame.New("league_id", "appearance_id"))
	if !errors.As(err, &ce) || !ce.OutOfOrder {
		t.Fatalf("Write err=%v, want ConformError", err)
	}
	if len(repo.specs) != 0 {
		t.Fatalf("repository was called on a rejected table")
	}
}

func TestInstrumented_WrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := Instrumented{Sink: &Store{Repo: &fakeRepo{err: boom}}}
	err := s.Write(context.Background(), "prep", rawFrame())
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "checkpoint prep:") {
		t.Fatalf("err=%v, want wrapped boom", err)
	}
}

func TestOpen_Kinds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		cfg     config.Checkpoints
		want    any
		wantErr bool
	}{
		{cfg: config.Checkpoints{}, want: Nop{}},
		{cfg: config.Checkpoints{Kind: "none"}, want: Nop{}},
		{cfg: config.Checkpoints{Kind: "memory"}, want: &Memory{}},
		{cfg: config.Checkpoints{Kind: "dir", Dir: t.TempDir()}, want: Dir{}},
		{cfg: config.Checkpoints{Kind: "dir"}, wantErr: true},
		{cfg: config.Checkpoints{Kind: "oracle"}, wantErr: true},
	}
	for _, tc := range tests {
		sink, closeFn, err := Open(ctx, tc.cfg, nil, nil)
		if closeFn == nil {
			t.Fatalf("Open(%+v) close func is nil", tc.cfg)
		}
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Open(%+v) err=nil, want error", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Open(%+v): %v", tc.cfg, err)
		}
		inner := sink.(Instrumented).Sink
		if reflect.TypeOf(inner) != reflect.TypeOf(tc.want) {
			t.Fatalf("Open(%+v) sink=%T, want %T", tc.cfg, inner, tc.want)
		}
		_ = closeFn()
	}
}

func TestOpen_SQLiteTypedPrepTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "checkpoints.db")
	sink, closeFn, err := Open(ctx, config.Checkpoints{Kind: "sqlite", DSN: dsn}, map[string]schema.Schema{"prep": prepSchema()}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	prep := frame.New("appearance_id", "league_id")
	prep.Rows = [][]any{{int64(1), "GB1"}, {int64(2), "L1"}}
	if err := sink.Write(ctx, "prep", prep); err != nil {
		t.Fatalf("Write: %v", err)
	}
	prep.Rows = prep.Rows[:1]
	if err := sink.Write(ctx, "prep", prep); err != nil {
		t.Fatalf("Write again: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	var typ string
	if err := db.QueryRow(`SELECT COUNT(*), typeof(MAX("appearance_id")) FROM "prep"`).Scan(&n, &typ); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 || typ != "integer" {
		t.Fatalf("count=%d typeof=%s, want 1 integer", n, typ)
	}
}
