package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"prep/internal/storage"
)

func prepSpec() storage.TableSpec {
	return storage.TableSpec{
		Name: "prep",
		Columns: []storage.ColumnSpec{
			{Name: "appearance_id", Type: storage.TypeInteger},
			{Name: "league_id", Type: storage.TypeString},
			{Name: "goals", Type: storage.TypeInteger},
		},
		PrimaryKey: []string{"appearance_id"},
	}
}

func TestBuildCreateSQL(t *testing.T) {
	t.Parallel()

	got := buildCreateSQL(prepSpec())
	for _, want := range []string{
		`CREATE TABLE "prep"`,
		`"appearance_id" INTEGER NOT NULL`,
		`"league_id" TEXT NOT NULL`,
		`PRIMARY KEY ("appearance_id")`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("buildCreateSQL missing %q:\n%s", want, got)
		}
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("prep", []string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	want := `INSERT INTO "prep" ("a", "b") VALUES (?,?), (?,?)`
	if q != want {
		t.Fatalf("q=%q, want %q", q, want)
	}
	if len(args) != 4 {
		t.Fatalf("len(args)=%d, want 4", len(args))
	}
}

func TestChunkRows_RespectsParamLimit(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{i, i, i}
	}
	chunks := chunkRows(rows, 3)
	total := 0
	for _, c := range chunks {
		if len(c)*3 > maxParams {
			t.Fatalf("chunk has %d params, limit %d", len(c)*3, maxParams)
		}
		total += len(c)
	}
	if total != len(rows) {
		t.Fatalf("total=%d, want %d", total, len(rows))
	}
}

func TestReplaceTable_OverwritesOnRerun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "checkpoints.db")

	repo, err := New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()

	spec := prepSpec()
	if _, err := repo.ReplaceTable(ctx, spec, [][]any{{int64(1), "GB1", int64(0)}, {int64(2), "ES1", int64(3)}}); err != nil {
		t.Fatalf("first ReplaceTable: %v", err)
	}
	n, err := repo.ReplaceTable(ctx, spec, [][]any{{int64(1), "L1", int64(2)}})
	if err != nil {
		t.Fatalf("second ReplaceTable: %v", err)
	}
	if n != 1 {
		t.Fatalf("n=%d, want 1", n)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var count int
	var league string
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(league_id) FROM prep`).Scan(&count, &league); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 || league != "L1" {
		t.Fatalf("count=%d league=%q, want 1 L1", count, league)
	}
}

func TestReplaceTable_EmptyRowsCreatesTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "empty.db")
	repo, err := New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()

	spec := storage.TextTable("json_normalized_filtered", []string{"competition_code"})
	n, err := repo.ReplaceTable(ctx, spec, nil)
	if err != nil || n != 0 {
		t.Fatalf("ReplaceTable(nil)=(%d,%v), want (0,nil)", n, err)
	}
}

func TestReplaceTable_RejectsBadWidth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := New(ctx, storage.Config{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "w.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()

	if _, err := repo.ReplaceTable(ctx, prepSpec(), [][]any{{int64(1)}}); err == nil {
		t.Fatalf("ReplaceTable(short row) err=nil, want error")
	}
}
