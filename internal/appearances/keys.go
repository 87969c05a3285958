package appearances

import (
	"cmp"
	"slices"
)

// KeyPair is the natural key of an appearance.
type KeyPair struct {
	PlayerID int64
	GameID   int64
}

// Compare orders pairs by PlayerID, then GameID.
func (k KeyPair) Compare(o KeyPair) int {
	if c := cmp.Compare(k.PlayerID, o.PlayerID); c != 0 {
		return c
	}
	return cmp.Compare(k.GameID, o.GameID)
}

// SurrogateKeys assigns each distinct pair its 1-based dense rank in
// ascending (PlayerID, GameID) order.
//
// The rank depends only on the set of pairs, not on input order, so the
// same snapshot always gets the same keys. Adding a pair shifts the keys of
// every pair sorted after it.
func SurrogateKeys(pairs []KeyPair) map[KeyPair]int64 {
	distinct := slices.Clone(pairs)
	slices.SortFunc(distinct, KeyPair.Compare)
	distinct = slices.Compact(distinct)

	out := make(map[KeyPair]int64, len(distinct))
	for i, k := range distinct {
		out[k] = int64(i + 1)
	}
	return out
}
