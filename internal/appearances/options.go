package appearances

import "strings"

// DefaultOrigin is prefixed to every relative appearance link.
const DefaultOrigin = "https://www.transfermarkt.co.uk"

// DomesticCompetitions are the first-tier league codes kept by default.
var DomesticCompetitions = []string{
	"ES1", "GB1", "L1", "IT1", "FR1", "GR1", "PO1",
	"BE1", "UKR1", "RU1", "DK1", "SC1", "TR1", "NL1",
}

// Options are the normalizer constants.
type Options struct {
	// Origin is prefixed to the record's href to build the url column.
	Origin string

	// Competitions is the competition_code allow-list. Duplicates are
	// harmless.
	Competitions []string
}

// DefaultOptions returns the production constants.
func DefaultOptions() Options {
	return Options{
		Origin:       DefaultOrigin,
		Competitions: append([]string(nil), DomesticCompetitions...),
	}
}

// WithOverrides returns o with every non-empty override applied.
func (o Options) WithOverrides(origin string, competitions []string) Options {
	if origin = strings.TrimSpace(origin); origin != "" {
		o.Origin = origin
	}
	if len(competitions) > 0 {
		o.Competitions = append([]string(nil), competitions...)
	}
	return o
}

func (o Options) allowSet() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Competitions))
	for _, c := range o.Competitions {
		set[strings.TrimSpace(c)] = struct{}{}
	}
	return set
}
