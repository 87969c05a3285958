package transformer

// Dedupe removes rows whose full value tuple repeats an earlier row. The first
// occurrence wins and input order is preserved. It returns the retained rows
// and the number of rows dropped.
//
// Rows are compared by RowHash, so an int and an int64 holding the same
// number are equal, while nil and "" are not.
func Dedupe(rows [][]any, spec HashSpec) (kept [][]any, dropped int) {
	if len(rows) == 0 {
		return rows, 0
	}

	idx := FirstOccurrences(rows, spec)
	kept = make([][]any, len(idx))
	for i, j := range idx {
		kept[i] = rows[j]
	}
	return kept, len(rows) - len(idx)
}

// FirstOccurrences returns, in ascending order, the positions of rows whose
// value tuple has not been seen earlier in rows.
func FirstOccurrences(rows [][]any, spec HashSpec) []int {
	seen := make(map[string]struct{}, len(rows))
	out := make([]int, 0, len(rows))
	for i, row := range rows {
		h := RowHash(row, spec)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, i)
	}
	return out
}
