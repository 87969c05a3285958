package appearances

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"prep/internal/checkpoint"
	"prep/internal/frame"
	"prep/internal/logging"
	"prep/internal/metrics"
	"prep/internal/record"
	"prep/internal/transformer"
)

// Normalizer runs the appearances transformation. It holds no per-run state
// and may be reused.
type Normalizer struct {
	opts    Options
	allowed map[string]struct{}
	sink    checkpoint.Sink
	logger  *slog.Logger
}

// New returns a Normalizer. A nil sink discards checkpoints; a nil logger
// discards logs.
func New(opts Options, sink checkpoint.Sink, logger *slog.Logger) *Normalizer {
	if sink == nil {
		sink = checkpoint.Nop{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Normalizer{
		opts:    opts,
		allowed: opts.allowSet(),
		sink:    sink,
		logger:  logger,
	}
}

// Result is the output of one Process call.
type Result struct {
	// Table holds the appearances in Columns order.
	Table *frame.Frame

	Appearances []Appearance

	// Read is the number of input records, Filtered the number dropped by
	// the competition allow-list and Duplicates the number of exact
	// duplicate rows removed.
	Read       int
	Filtered   int
	Duplicates int
}

// Process flattens raw, keeps allow-listed competitions, derives the typed
// columns, assigns appearance ids and drops exact duplicates. The
// json_normalized, json_normalized_filtered and prep checkpoints are written
// after their stages complete.
//
// Edge cases:
//   - Empty input yields an empty table, not an error.
//   - Absent or null goals, assists, minutes and card cells count as 0.
//
// Errors (row numbers are 1-based positions in raw):
//   - *record.PathConflictError or record.ErrNotObject from flattening
//   - *MissingFieldError for an absent or null link, href or
//     competition_code column
//   - *MalformedIdentifierError and *MetricParseError from casting
//   - *DuplicateKeyError when distinct rows share (player_id, game_id)
//   - checkpoint sink errors
func (n *Normalizer) Process(ctx context.Context, raw []record.Value) (*Result, error) {
	start := time.Now()

	flat := make([]*record.Flat, 0, len(raw))
	for i, v := range raw {
		f, err := record.Flatten(v)
		if err != nil {
			return nil, fmt.Errorf("appearances: row %d: %w", i+1, err)
		}
		flat = append(flat, f)
	}
	normalized := frame.FromRecords(flat)
	if err := n.sink.Write(ctx, CheckpointNormalized, normalized); err != nil {
		return nil, err
	}

	filtered, kept, err := n.filter(normalized)
	if err != nil {
		return nil, err
	}
	if err := n.sink.Write(ctx, CheckpointFiltered, filtered); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	apps, err := n.derive(filtered, kept)
	if err != nil {
		return nil, err
	}

	pairs := make([]KeyPair, len(apps))
	for i, a := range apps {
		pairs[i] = a.Key()
	}
	ids := SurrogateKeys(pairs)
	rows := make([][]any, len(apps))
	for i := range apps {
		apps[i].AppearanceID = ids[pairs[i]]
		rows[i] = apps[i].Row()
	}

	first := transformer.FirstOccurrences(rows, transformer.HashSpec{})
	res := &Result{
		Table:       frame.New(Columns...),
		Appearances: make([]Appearance, 0, len(first)),
		Read:        len(raw),
		Filtered:    normalized.Len() - filtered.Len(),
		Duplicates:  len(rows) - len(first),
	}
	owner := make(map[int64]int, len(first))
	for _, i := range first {
		a := apps[i]
		if j, dup := owner[a.AppearanceID]; dup {
			return nil, &DuplicateKeyError{
				Key:        a.Key(),
				FirstRow:   kept[j] + 1,
				SecondRow:  kept[i] + 1,
				Appearance: a.AppearanceID,
			}
		}
		owner[a.AppearanceID] = i
		res.Appearances = append(res.Appearances, a)
		res.Table.Rows = append(res.Table.Rows, rows[i])
	}

	if err := n.sink.Write(ctx, CheckpointPrep, res.Table); err != nil {
		return nil, err
	}

	metrics.RecordRows(metrics.RowsRead, res.Read)
	metrics.RecordRows(metrics.RowsFiltered, res.Filtered)
	metrics.RecordRows(metrics.RowsDuplicate, res.Duplicates)
	n.logger.Info("appearances normalized",
		"read", res.Read,
		"filtered", res.Filtered,
		"duplicates", res.Duplicates,
		"rows", res.Table.Len(),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// filter keeps rows whose competition_code is allow-listed. kept maps each
// retained row to its position in t.
func (n *Normalizer) filter(t *frame.Frame) (*frame.Frame, []int, error) {
	ci := t.Index(PathCompetitionCode)
	if ci < 0 {
		if t.Len() > 0 {
			return nil, nil, &MissingFieldError{Field: PathCompetitionCode}
		}
		return frame.New(t.Columns...), nil, nil
	}

	out, kept := t.Filter(func(row []any) bool {
		_, ok := n.allowed[Text(row[ci])]
		return ok
	})
	return out, kept, nil
}

// derive casts every filtered row. AppearanceID is left zero.
func (n *Normalizer) derive(t *frame.Frame, kept []int) ([]Appearance, error) {
	if t.Len() == 0 {
		return nil, nil
	}

	col := func(path string) int { return t.Index(path) }
	var (
		playerLink = col(PathPlayerLink)
		gameLink   = col(PathGameLink)
		clubLink   = col(PathClubLink)
		href       = col(PathHref)
		league     = col(PathCompetitionCode)
		goals      = col(PathGoals)
		assists    = col(PathAssists)
		minutes    = col(PathMinutesPlayed)
		yellow     = col(PathYellowCards)
		yellow2    = col(PathSecondYellowCards)
		red        = col(PathRedCards)
	)
	for _, path := range RequiredPaths() {
		if !t.Has(path) {
			return nil, &MissingFieldError{Field: path}
		}
	}

	out := make([]Appearance, 0, t.Len())
	for r, row := range t.Rows {
		inRow := kept[r] + 1
		d := rowDeriver{row: row, inRow: inRow}

		a := Appearance{
			PlayerID:     d.id(playerLink, PathPlayerLink),
			GameID:       d.id(gameLink, PathGameLink),
			LeagueID:     d.text(league),
			PlayerClubID: d.id(clubLink, PathClubLink),
			Goals:        d.metric(goals, PathGoals),
			Assists:      d.metric(assists, PathAssists),
		}
		a.MinutesPlayed = d.minutes(minutes)
		y, rc := CardCounts(d.text(yellow), d.text(yellow2), d.text(red))
		a.YellowCards, a.RedCards = int64(y), int64(rc)
		if h, ok := d.required(href, PathHref); ok {
			a.URL = n.opts.Origin + h
		}

		if d.err != nil {
			return nil, d.err
		}
		out = append(out, a)
	}
	return out, nil
}

// rowDeriver casts the cells of one row, keeping the first error.
type rowDeriver struct {
	row   []any
	inRow int
	err   error
}

func (d *rowDeriver) text(i int) string {
	if i < 0 {
		return ""
	}
	return Text(d.row[i])
}

func (d *rowDeriver) required(i int, path string) (string, bool) {
	if d.err != nil {
		return "", false
	}
	if d.row[i] == nil {
		d.err = &MissingFieldError{Row: d.inRow, Field: path}
		return "", false
	}
	return Text(d.row[i]), true
}

func (d *rowDeriver) id(i int, path string) int64 {
	link, ok := d.required(i, path)
	if !ok {
		return 0
	}
	id, err := ExtractID(link)
	if err != nil {
		d.err = atRow(err, d.inRow, path)
	}
	return id
}

func (d *rowDeriver) metric(i int, path string) int64 {
	if d.err != nil {
		return 0
	}
	v, err := CastMetric(path, d.text(i))
	if err != nil {
		d.err = atRow(err, d.inRow, path)
	}
	return int64(v)
}

func (d *rowDeriver) minutes(i int) int64 {
	if d.err != nil {
		return 0
	}
	v, err := CastMinutesPlayed(d.text(i))
	if err != nil {
		d.err = atRow(err, d.inRow, PathMinutesPlayed)
	}
	return int64(v)
}
