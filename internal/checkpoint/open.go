package checkpoint

import (
	"context"
	"fmt"
	"log/slog"

	"prep/internal/config"
	"prep/internal/schema"
	"prep/internal/storage"
)

// Open builds the sink selected by cfg. The returned close function releases
// backend resources and is never nil.
//
// Kinds:
//   - "" and "none": Nop
//   - "memory": Memory
//   - "dir": Dir at cfg.Dir
//   - anything else: a storage backend of that kind opened with cfg.DSN
//
// Database backends must be linked in by the caller (prep/internal/storage/all).
func Open(ctx context.Context, cfg config.Checkpoints, schemas map[string]schema.Schema, logger *slog.Logger) (Sink, func() error, error) {
	noClose := func() error { return nil }

	var sink Sink
	closeFn := noClose

	switch cfg.Kind {
	case "", "none":
		sink = Nop{}
	case "memory":
		sink = NewMemory()
	case "dir":
		if cfg.Dir == "" {
			return nil, noClose, fmt.Errorf("checkpoint: kind dir requires dir")
		}
		sink = Dir{Path: cfg.Dir}
	default:
		repo, err := storage.New(ctx, storage.Config{Kind: cfg.Kind, DSN: cfg.DSN})
		if err != nil {
			return nil, noClose, fmt.Errorf("checkpoint: %w", err)
		}
		sink = &Store{Repo: repo, Prefix: cfg.TablePrefix, Schemas: schemas}
		closeFn = func() error {
			repo.Close()
			return nil
		}
	}

	return Instrumented{Sink: sink, Logger: logger}, closeFn, nil
}
