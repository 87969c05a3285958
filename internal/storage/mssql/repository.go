// Package mssql implements storage.Repository for Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"prep/internal/storage"
)

// maxParams keeps each statement under SQL Server's 2100 parameter limit.
const maxParams = 2000

func init() {
	storage.Register("mssql", New)
}

// Repo implements storage.Repository using database/sql and the "sqlserver"
// driver registered by go-mssqldb.
type Repo struct {
	db *sql.DB
}

// New opens cfg.DSN and validates connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
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
		return 0, fmt.Errorf("mssql: %s: %w", spec.Name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, buildDropSQL(spec.Name)); err != nil {
		return 0, fmt.Errorf("mssql: drop %s: %w", spec.Name, err)
	}
	if _, err := tx.ExecContext(ctx, buildCreateSQL(spec)); err != nil {
		return 0, fmt.Errorf("mssql: create %s: %w", spec.Name, err)
	}

	var total int64
	columns := spec.ColumnNames()
	per := maxParams / len(columns)
	if per < 1 {
		per = 1
	}
	for start := 0; start < len(norm); start += per {
		end := start + per
		if end > len(norm) {
			end = len(norm)
		}
		q, args := buildBulkInsertSQL(spec.Name, columns, norm[start:end])
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("mssql: insert %s: %w", spec.Name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.prep" -> [dbo].[prep]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// mssqlType maps a logical type. Key columns need a bounded NVARCHAR
// because NVARCHAR(MAX) cannot be indexed.
func mssqlType(typ string, key bool) string {
	switch typ {
	case storage.TypeInteger:
		return "BIGINT"
	case storage.TypeNumber:
		return "FLOAT"
	case storage.TypeBoolean:
		return "BIT"
	default:
		if key {
			return "NVARCHAR(450)"
		}
		return "NVARCHAR(MAX)"
	}
}

func buildDropSQL(table string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		strings.ReplaceAll(table, "'", "''"), mssqlTableIdent(table))
}

func buildCreateSQL(t storage.TableSpec) string {
	isKey := make(map[string]bool, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		isKey[c] = true
	}

	parts := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		def := mssqlIdent(c.Name) + " " + mssqlType(c.Type, isKey[c.Name])
		if c.Nullable && !isKey[c.Name] {
			def += " NULL"
		} else {
			def += " NOT NULL"
		}
		parts = append(parts, def)
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			pk[i] = mssqlIdent(c)
		}
		parts = append(parts, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", mssqlTableIdent(t.Name), strings.Join(parts, ", "))
}

// buildBulkInsertSQL builds a single INSERT ... VALUES statement for all rows.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	return b.String(), args
}
