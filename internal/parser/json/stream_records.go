// Package json streams raw records out of JSON documents without buffering
// the whole input.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"prep/internal/config"
	"prep/internal/record"
)

// StreamRecords parses JSON from r and streams each record into out, keeping
// object keys in source order.
//
// Streaming behavior:
//   - If the root is a JSON array, it streams each object element one-by-one.
//     null elements are skipped.
//   - If the root is an object holding an array field, that array is streamed
//     (envelope pattern). parserOpts "records_key" names the field; without it
//     the first array-valued field is used.
//   - If the root is a single object with no array field, it emits one record.
//   - Objects following the root value (JSON Lines) are emitted too.
//
// parserOpts:
//   - records_key: envelope field holding the records
//   - header_map: map original top-level key -> normalized key
//
// Errors:
//   - Malformed JSON and non-object records stop the stream; onParseErr (if
//     non-nil) sees the record ordinal at which parsing failed.
//   - ctx cancellation returns ctx.Err().
func StreamRecords(
	ctx context.Context,
	r io.Reader,
	parserOpts config.Options,
	out chan<- record.Raw,
	onParseErr func(line int, err error),
) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	s := &streamer{
		ctx:        ctx,
		dec:        dec,
		out:        out,
		onParseErr: onParseErr,
		recordsKey: parserOpts.String("records_key", ""),
		headerMap:  parserOpts.StringMap("header_map"),
	}

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return s.parseErr(fmt.Errorf("json: read first token: %w", err))
	}

	switch d := tok.(type) {
	case json.Delim:
		switch d {
		case '[':
			if err := s.streamArray(); err != nil {
				return err
			}
			if err := expectDelim(dec, ']'); err != nil {
				return s.parseErr(err)
			}
		case '{':
			if err := s.streamEnvelopeOrSingle(); err != nil {
				return err
			}
		default:
			return s.parseErr(fmt.Errorf("json: unsupported root delimiter %q", d))
		}
	default:
		return s.parseErr(fmt.Errorf("json: unsupported root token %T (want object or array)", tok))
	}

	return s.streamTrailing()
}

type streamer struct {
	ctx        context.Context
	dec        *json.Decoder
	out        chan<- record.Raw
	onParseErr func(line int, err error)
	recordsKey string
	headerMap  map[string]string

	line int
}

func (s *streamer) parseErr(err error) error {
	if s.onParseErr != nil {
		s.onParseErr(s.line+1, err)
	}
	return err
}

func (s *streamer) emit(v record.Value) error {
	s.line++
	if len(s.headerMap) > 0 {
		v = renameKeys(v, s.headerMap)
	}

	select {
	case s.out <- record.Raw{Line: s.line, Value: v}:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// streamArray streams elements of the current array ('[' already consumed).
func (s *streamer) streamArray() error {
	for s.dec.More() {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}

		tok, err := s.dec.Token()
		if err != nil {
			return s.parseErr(fmt.Errorf("json: read array element: %w", err))
		}
		if tok == nil {
			continue
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return s.parseErr(fmt.Errorf("json: array element not an object (got %v)", tok))
		}
		v, err := readValue(s.dec, tok)
		if err != nil {
			return s.parseErr(err)
		}
		if err := s.emit(v); err != nil {
			return err
		}
	}
	return nil
}

// streamEnvelopeOrSingle walks a root object ('{' already consumed) and
// consumes its closing '}'.
func (s *streamer) streamEnvelopeOrSingle() error {
	var fields []record.Field
	streamed := false

	for s.dec.More() {
		keyTok, err := s.dec.Token()
		if err != nil {
			return s.parseErr(fmt.Errorf("json: read object key: %w", err))
		}
		key, ok := keyTok.(string)
		if !ok {
			return s.parseErr(fmt.Errorf("json: object key not a string (got %T)", keyTok))
		}

		valTok, err := s.dec.Token()
		if err != nil {
			return s.parseErr(fmt.Errorf("json: read object value token: %w", err))
		}

		isArray := valTok == json.Delim('[')
		if !streamed && isArray && (s.recordsKey == "" || s.recordsKey == key) {
			if err := s.streamArray(); err != nil {
				return err
			}
			if err := expectDelim(s.dec, ']'); err != nil {
				return s.parseErr(err)
			}
			streamed = true
			continue
		}

		if streamed {
			if err := skipValue(s.dec, valTok); err != nil {
				return s.parseErr(err)
			}
			continue
		}

		v, err := readValue(s.dec, valTok)
		if err != nil {
			return s.parseErr(err)
		}
		fields = append(fields, record.F(key, v))
	}

	if err := expectDelim(s.dec, '}'); err != nil {
		return s.parseErr(err)
	}

	if !streamed {
		return s.emit(record.Object(fields...))
	}
	return nil
}

// streamTrailing emits JSON Lines objects that follow the root value.
func (s *streamer) streamTrailing() error {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return s.parseErr(fmt.Errorf("json: read trailing object: %w", err))
		}
		if tok != json.Delim('{') {
			return s.parseErr(fmt.Errorf("json: trailing value not an object (got %v)", tok))
		}
		v, err := readValue(s.dec, tok)
		if err != nil {
			return s.parseErr(err)
		}
		if err := s.emit(v); err != nil {
			return err
		}
	}
}

// readValue builds a record.Value for the current JSON value, given its first
// token has already been read. Object keys keep their source order.
func readValue(dec *json.Decoder, tok json.Token) (record.Value, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		if tok == nil {
			return record.Null(), nil
		}
		return record.Scalar(tok), nil
	}

	switch d {
	case '{':
		var fields []record.Field
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return record.Value{}, fmt.Errorf("json: read object key: %w", err)
			}
			k, ok := kt.(string)
			if !ok {
				return record.Value{}, fmt.Errorf("json: object key not a string (got %T)", kt)
			}
			vt, err := dec.Token()
			if err != nil {
				return record.Value{}, fmt.Errorf("json: read object value: %w", err)
			}
			v, err := readValue(dec, vt)
			if err != nil {
				return record.Value{}, err
			}
			fields = append(fields, record.F(k, v))
		}
		if err := expectDelim(dec, '}'); err != nil {
			return record.Value{}, err
		}
		return record.Object(fields...), nil

	case '[':
		var items []record.Value
		for dec.More() {
			vt, err := dec.Token()
			if err != nil {
				return record.Value{}, fmt.Errorf("json: read array value: %w", err)
			}
			v, err := readValue(dec, vt)
			if err != nil {
				return record.Value{}, err
			}
			items = append(items, v)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return record.Value{}, err
		}
		return record.Array(items...), nil

	default:
		return record.Value{}, fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// skipValue consumes the rest of a value whose first token was already read.
func skipValue(dec *json.Decoder, tok json.Token) error {
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	depth := 1
	if d != '{' && d != '[' {
		return fmt.Errorf("json: unexpected delimiter %q", d)
	}
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: skip value: %w", err)
		}
		if dd, ok := t.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if tok != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

// renameKeys applies header_map to the top-level keys of an object record.
func renameKeys(v record.Value, m map[string]string) record.Value {
	if v.Kind() != record.KindObject {
		return v
	}
	in := v.Fields()
	out := make([]record.Field, len(in))
	for i, f := range in {
		if nk, ok := m[f.Key]; ok && nk != "" {
			f.Key = nk
		}
		out[i] = f
	}
	return record.Object(out...)
}
