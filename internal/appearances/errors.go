package appearances

import (
	"errors"
	"fmt"
)

// MalformedIdentifierError reports a link whose identifier segment is
// missing or not an integer.
type MalformedIdentifierError struct {
	Row   int // 1-based input row; 0 when not known
	Field string
	Link  string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("appearances: %s: malformed identifier link %q", position(e.Row, e.Field), e.Link)
}

// MetricParseError reports metric text that is neither empty nor an integer.
type MetricParseError struct {
	Row   int // 1-based input row; 0 when not known
	Field string
	Text  string
	Err   error
}

func (e *MetricParseError) Error() string {
	return fmt.Sprintf("appearances: %s: cannot parse %q: %v", position(e.Row, e.Field), e.Text, e.Err)
}

func (e *MetricParseError) Unwrap() error { return e.Err }

// MissingFieldError reports a required path that is absent or null.
type MissingFieldError struct {
	Row   int // 1-based input row; 0 when the column is absent from the table
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("appearances: %s: required field is missing", position(e.Row, e.Field))
}

// DuplicateKeyError reports two distinct output rows for the same
// (player_id, game_id) pair, which would share one appearance_id.
type DuplicateKeyError struct {
	Key        KeyPair
	FirstRow   int // 1-based input rows
	SecondRow  int
	Appearance int64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("appearances: rows %d and %d differ but share player_id=%d game_id=%d (appearance_id %d)",
		e.FirstRow, e.SecondRow, e.Key.PlayerID, e.Key.GameID, e.Appearance)
}

func position(row int, field string) string {
	switch {
	case row > 0 && field != "":
		return fmt.Sprintf("row %d field %s", row, field)
	case row > 0:
		return fmt.Sprintf("row %d", row)
	default:
		return "field " + field
	}
}

// atRow stamps row and field onto a helper error that does not know them yet.
func atRow(err error, row int, field string) error {
	var mi *MalformedIdentifierError
	if errors.As(err, &mi) {
		mi.Row, mi.Field = row, field
		return mi
	}
	var mp *MetricParseError
	if errors.As(err, &mp) {
		mp.Row, mp.Field = row, field
		return mp
	}
	return err
}
