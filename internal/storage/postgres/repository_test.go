package postgres

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"prep/internal/storage"
)

func TestBuildReplaceSQL_Qualified(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name: "staging.prep",
		Columns: []storage.ColumnSpec{
			{Name: "appearance_id", Type: storage.TypeInteger},
			{Name: "url", Type: storage.TypeString, Nullable: true},
		},
		PrimaryKey: []string{"appearance_id"},
	}

	stmts := buildReplaceSQL(spec)
	if len(stmts) != 3 {
		t.Fatalf("len(stmts)=%d, want 3: %v", len(stmts), stmts)
	}
	if stmts[0] != `CREATE SCHEMA IF NOT EXISTS "staging";` {
		t.Fatalf("schema stmt=%q", stmts[0])
	}
	if stmts[1] != `DROP TABLE IF EXISTS "staging"."prep";` {
		t.Fatalf("drop stmt=%q", stmts[1])
	}
	for _, want := range []string{
		`CREATE TABLE "staging"."prep"`,
		`"appearance_id" BIGINT NOT NULL`,
		`"url" TEXT`,
		`PRIMARY KEY ("appearance_id")`,
	} {
		if !strings.Contains(stmts[2], want) {
			t.Fatalf("create stmt missing %q: %s", want, stmts[2])
		}
	}
	if strings.Contains(stmts[2], `"url" TEXT NOT NULL`) {
		t.Fatalf("nullable column rendered NOT NULL: %s", stmts[2])
	}
}

func TestBuildReplaceSQL_Unqualified(t *testing.T) {
	t.Parallel()

	stmts := buildReplaceSQL(storage.TextTable("json_normalized", []string{"href"}))
	if len(stmts) != 2 {
		t.Fatalf("len(stmts)=%d, want 2: %v", len(stmts), stmts)
	}
}

func TestTableIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want pgx.Identifier
	}{
		{"prep", pgx.Identifier{"prep"}},
		{"staging.prep", pgx.Identifier{"staging", "prep"}},
		{" a.b.c ", pgx.Identifier{"a.b.c"}},
	}
	for _, tc := range tests {
		if got := tableIdentifier(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("tableIdentifier(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}
