// Package csv reads records whose header row holds dotted paths, such as a
// json_normalized checkpoint written by the dir sink, and rebuilds the nested
// record for each row.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"prep/internal/config"
	"prep/internal/record"
)

// ReadRecords streams CSV rows from src into out as nested records.
//
// Header cells are split on "." to rebuild nesting ("player.href" becomes
// {"player": {"href": ...}}). Cells are kept as strings; an empty cell stays
// "" unless empty_as_null is set.
//
// parserOpts:
//   - comma: field delimiter (default ',')
//   - lazy_quotes: tolerate bare quotes (default false)
//   - trim_space: trim cell whitespace (default false)
//   - empty_as_null: turn "" cells into null (default false)
//   - header_map: map original header -> dotted path
//
// Errors:
//   - A missing header row, a header that cannot be nested (e.g. both "a"
//     and "a.b") or a malformed row stops the read; onErr (if non-nil) sees
//     the CSV line number.
//   - ctx cancellation returns ctx.Err().
func ReadRecords(
	ctx context.Context,
	src io.ReadCloser,
	parserOpts config.Options,
	out chan<- record.Raw,
	onErr func(line int, err error),
) error {
	defer src.Close()

	trim := parserOpts.Bool("trim_space", false)
	emptyAsNull := parserOpts.Bool("empty_as_null", false)
	hm := parserOpts.StringMap("header_map")

	cr := csv.NewReader(src)
	cr.Comma = parserOpts.Rune("comma", ',')
	cr.LazyQuotes = parserOpts.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = 0

	line := 0
	fail := func(err error) error {
		if onErr != nil {
			onErr(line, err)
		}
		return err
	}

	line++
	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fail(fmt.Errorf("csv: read header: %w", err))
	}

	paths := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		}
		paths[i] = h
	}

	// Reject headers that cannot be nested before reading any data.
	if _, err := record.Unflatten(paths, make([]any, len(paths))); err != nil {
		return fail(fmt.Errorf("csv: header: %w", err))
	}

	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line++
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fail(fmt.Errorf("csv: read: %w", err))
		}

		values := make([]any, len(rec))
		for i, v := range rec {
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" && emptyAsNull {
				values[i] = nil
				continue
			}
			values[i] = v
		}

		v, err := record.Unflatten(paths, values)
		if err != nil {
			return fail(fmt.Errorf("csv: %w", err))
		}

		n++
		select {
		case out <- record.Raw{Line: n, Value: v}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
