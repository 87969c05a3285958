package checkpoint

import (
	"context"
	"fmt"

	"prep/internal/frame"
	"prep/internal/schema"
	"prep/internal/storage"
)

// Store persists tables through a storage.Repository, one database table
// per checkpoint name.
//
// Names with a declared schema get typed columns and a primary key, after
// the table's columns are checked against the declaration. Every other
// table is stored with nullable text columns, since raw stage columns are
// only known at run time.
type Store struct {
	Repo    storage.Repository
	Prefix  string
	Schemas map[string]schema.Schema
}

// Write implements Sink.
func (s *Store) Write(ctx context.Context, name string, t *frame.Frame) error {
	if err := validName(name); err != nil {
		return err
	}
	table := s.Prefix + name

	spec := storage.TextTable(table, t.Columns)
	if sc, ok := s.Schemas[name]; ok {
		if err := sc.Conform(t.Columns); err != nil {
			return err
		}
		spec = sc.TableSpec(table)
	}

	if _, err := s.Repo.ReplaceTable(ctx, spec, t.Rows); err != nil {
		return fmt.Errorf("checkpoint: replace %s: %w", table, err)
	}
	return nil
}
