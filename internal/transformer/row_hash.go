// Package transformer provides row-level transforms shared by pipeline stages.
package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HashSpec describes how to derive a row hash.
type HashSpec struct {
	// Separator between field components. Defaults to ASCII Unit Separator.
	Separator string

	// TrimSpace trims leading/trailing blanks of string values before hashing.
	TrimSpace bool
}

// RowHash returns the lowercase hex SHA-256 of the canonical encoding of
// values. Two rows hash equal iff their canonical encodings are equal.
//
// Canonicalization rules:
//   - values are joined in order with spec.Separator
//   - nil is encoded as a single NUL byte so missing differs from ""
//   - integers of any width encode identically for equal values
//   - time.Time is encoded as RFC3339Nano in UTC
func RowHash(values []any, spec HashSpec) string {
	sep := spec.Separator
	if sep == "" {
		sep = "\x1f"
	}

	var b strings.Builder
	var scratch [64]byte

	b.Grow(len(values) * 16)
	for i, v := range values {
		if i > 0 {
			b.WriteString(sep)
		}
		appendCanonicalValue(&b, v, spec.TrimSpace, &scratch)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func appendCanonicalValue(b *strings.Builder, v any, trimSpace bool, scratch *[64]byte) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')

	case string:
		if trimSpace && hasEdgeSpace(t) {
			t = strings.TrimSpace(t)
		}
		b.WriteString(t)

	case []byte:
		s := string(t)
		if trimSpace && hasEdgeSpace(s) {
			s = strings.TrimSpace(s)
		}
		b.WriteString(s)

	case json.Number:
		b.WriteString(t.String())

	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}

	case int:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int8:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int16:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int32:
		b.Write(strconv.AppendInt(scratch[:0], int64(t), 10))
	case int64:
		b.Write(strconv.AppendInt(scratch[:0], t, 10))

	case uint:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint8:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint16:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint32:
		b.Write(strconv.AppendUint(scratch[:0], uint64(t), 10))
	case uint64:
		b.Write(strconv.AppendUint(scratch[:0], t, 10))

	case float32:
		b.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))

	default:
		b.WriteString(fmt.Sprintf("%v", t))
	}
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}
