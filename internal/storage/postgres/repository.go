// Package postgres implements storage.Repository on pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prep/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Repo implements storage.Repository for Postgres.
//
// Rows are loaded with COPY FROM STDIN, so ReplaceTable costs one round trip
// per statement regardless of row count.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a pool for cfg.DSN and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// ReplaceTable drops, recreates and copies spec in one transaction.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if err := spec.CheckRows(rows); err != nil {
		return 0, err
	}
	norm, err := storage.NormalizeRows(spec, rows)
	if err != nil {
		return 0, fmt.Errorf("postgres: %s: %w", spec.Name, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range buildReplaceSQL(spec) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("postgres: %s: %w", spec.Name, err)
		}
	}

	n, err := tx.CopyFrom(ctx, tableIdentifier(spec.Name), spec.ColumnNames(), pgx.CopyFromRows(norm))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy %s: %w", spec.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// tableIdentifier turns "schema.table" into a two-part identifier.
func tableIdentifier(name string) pgx.Identifier {
	if schema, table := splitQualifiedName(name); schema != "" {
		return pgx.Identifier{schema, table}
	}
	return pgx.Identifier{strings.TrimSpace(name)}
}

// splitQualifiedName splits a schema-qualified name into (schema, table).
//
// Examples:
//   - "staging.prep" => ("staging", "prep")
//   - "prep"         => ("", "prep")
//
// Only a single dot is recognized; anything else is treated as unqualified.
func splitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func pgType(typ string) string {
	switch typ {
	case storage.TypeInteger:
		return "BIGINT"
	case storage.TypeNumber:
		return "DOUBLE PRECISION"
	case storage.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// buildReplaceSQL returns the DDL statements run before COPY: an optional
// CREATE SCHEMA, the DROP and the CREATE TABLE.
func buildReplaceSQL(t storage.TableSpec) []string {
	var out []string
	if schema, _ := splitQualifiedName(t.Name); schema != "" {
		out = append(out, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(schema)))
	}

	ident := tableIdentifier(t.Name).Sanitize()
	out = append(out, fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, ident))

	cols := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		def := pgIdent(c.Name) + " " + pgType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			pk[i] = pgIdent(c)
		}
		cols = append(cols, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	out = append(out, fmt.Sprintf(`CREATE TABLE %s (%s);`, ident, strings.Join(cols, ", ")))
	return out
}
