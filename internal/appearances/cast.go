package appearances

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"prep/internal/record"
)

// idSegment is the 0-based position of the identifier in a link such as
// "/lionel-messi/profil/spieler/28003". Splitting stops after idSegment+2
// pieces so slashes past the identifier never matter.
const (
	idSegment = 4
	idSplitN  = idSegment + 2
)

// ExtractID returns the integer identifier held in the fifth "/"-separated
// segment of link.
//
// Errors:
//   - *MalformedIdentifierError when link has fewer than five segments or
//     the segment is not a base-10 integer.
func ExtractID(link string) (int64, error) {
	parts := strings.SplitN(link, "/", idSplitN)
	if len(parts) <= idSegment {
		return 0, &MalformedIdentifierError{Link: link}
	}
	id, err := strconv.ParseInt(parts[idSegment], 10, 64)
	if err != nil {
		return 0, &MalformedIdentifierError{Link: link}
	}
	return id, nil
}

// CastMetric converts a goals/assists cell. Empty text is 0.
//
// Errors:
//   - *MetricParseError for non-numeric text. Malformed counts are never
//     coerced to zero.
func CastMetric(field, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, &MetricParseError{Field: field, Text: text, Err: numError(err)}
	}
	return n, nil
}

// CastMinutesPlayed converts a minutes cell such as "45'". Empty text is 0;
// otherwise the last character is a unit marker and is dropped before
// parsing.
//
// Edge cases:
//   - A single character ("'" or "7") leaves nothing to parse and is an
//     error rather than 0.
//
// Errors:
//   - *MetricParseError when the text before the marker is not an integer.
func CastMinutesPlayed(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	_, size := utf8.DecodeLastRuneInString(text)
	numeric := text[:len(text)-size]
	n, err := strconv.Atoi(numeric)
	if err != nil {
		return 0, &MetricParseError{Field: "minutes_played", Text: text, Err: numError(err)}
	}
	return n, nil
}

// CardCounts derives card counts from presence: any non-empty text counts
// as one card, whatever it says.
func CardCounts(yellow, secondYellow, red string) (yellowCount, redCount int) {
	if yellow != "" {
		yellowCount++
	}
	if secondYellow != "" {
		yellowCount++
	}
	if red != "" {
		redCount = 1
	}
	return yellowCount, redCount
}

// Text canonicalises a flattened cell: its text form, trimmed and in Unicode
// NFC, so values that differ only by surrounding blanks or composition
// compare equal. nil is "".
func Text(v any) string {
	s := strings.TrimSpace(record.ScalarText(v))
	if s == "" {
		return ""
	}
	return norm.NFC.String(s)
}

// numError drops strconv's function prefix, keeping the reason.
func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
