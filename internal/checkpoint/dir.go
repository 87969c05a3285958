package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"prep/internal/frame"
)

// Dir writes each table as <Path>/<name>.csv. A table is written to a
// temporary file first and renamed into place, so readers never observe a
// half-written checkpoint.
type Dir struct {
	Path string
}

// Write implements Sink.
func (d Dir) Write(ctx context.Context, name string, t *frame.Frame) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	if d.Path == "" {
		return fmt.Errorf("checkpoint: dir sink has no path")
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.Path, "."+name+"-*.csv")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = frame.WriteCSV(tmp, t); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), d.file(name)); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

func (d Dir) file(name string) string {
	return filepath.Join(d.Path, name+".csv")
}
