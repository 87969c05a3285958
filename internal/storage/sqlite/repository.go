// Package sqlite implements storage.Repository on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"prep/internal/storage"
)

// maxParams stays below SQLITE_MAX_VARIABLE_NUMBER on older builds.
const maxParams = 999

func init() {
	storage.Register("sqlite", New)
}

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db *sql.DB
}

// New opens the database at cfg.DSN (a file path or "file:" URI).
//
// SQLite allows one writer, so the pool is capped at one connection.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

// Close closes the underlying database.
func (r *Repo) Close() { _ = r.db.Close() }

// ReplaceTable drops, recreates and loads spec in a single transaction.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if err := spec.CheckRows(rows); err != nil {
		return 0, err
	}
	norm, err := storage.NormalizeRows(spec, rows)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %s: %w", spec.Name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, buildDropSQL(spec.Name)); err != nil {
		return 0, fmt.Errorf("sqlite: drop %s: %w", spec.Name, err)
	}
	if _, err := tx.ExecContext(ctx, buildCreateSQL(spec)); err != nil {
		return 0, fmt.Errorf("sqlite: create %s: %w", spec.Name, err)
	}

	var total int64
	for _, chunk := range chunkRows(norm, len(spec.Columns)) {
		q, args := buildInsertSQL(spec.Name, spec.ColumnNames(), chunk)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("sqlite: insert %s: %w", spec.Name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqlType(typ string) string {
	switch typ {
	case storage.TypeInteger:
		return "INTEGER"
	case storage.TypeNumber:
		return "REAL"
	case storage.TypeBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func buildDropSQL(table string) string {
	return "DROP TABLE IF EXISTS " + sqlIdent(table) + ";"
}

// buildCreateSQL generates DDL for one table. A composite or single primary
// key is emitted as a table constraint.
func buildCreateSQL(t storage.TableSpec) string {
	parts := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		col := sqlIdent(c.Name) + " " + sqlType(c.Type)
		if !c.Nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			pk[i] = sqlIdent(c)
		}
		parts = append(parts, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  "))
}

// buildInsertSQL builds a multi-row INSERT with ? placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}

// chunkRows splits rows so no statement exceeds maxParams bind variables.
func chunkRows(rows [][]any, width int) [][][]any {
	if len(rows) == 0 || width == 0 {
		return nil
	}
	per := maxParams / width
	if per < 1 {
		per = 1
	}
	var out [][][]any
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
