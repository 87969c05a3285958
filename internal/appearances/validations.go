package appearances

import (
	"fmt"
	"slices"

	"prep/internal/validation"
)

// PlannedValidations names integrity rules the appearances table should one
// day satisfy. None has an implementation; they are reserved identifiers.
var PlannedValidations = []string{
	"assert_df_not_empty",
	"assert_minutes_played_gt_120",
	"assert_goals_in_range",
	"assert_assists_in_range",
	"assert_own_goals_in_range",
	"assert_yellow_cards_range",
	"assert_red_cards_range",
	"assert_unique_on_player_and_date",
	"assert_clubs_per_competition",
	"assert_appearances_per_match",
	"assert_appearances_per_club_per_game",
	"assert_appearances_freshness_is_less_than_one_week",
	"assert_goals_ne_assists",
	"assert_goals_ne_own_goals",
	"assert_yellow_cards_not_constant",
	"assert_red_cards_not_constant",
}

// Validations returns the default registry for the appearances table. It is
// empty: no rule is enforced beyond what Process guarantees by construction.
func Validations() *validation.Registry {
	return &validation.Registry{}
}

// BuildValidations returns the default registry extended with the catalog
// checks named in specs (see validation.Parse).
//
// Errors:
//   - a planned rule name, which is reserved but not implemented
//   - any validation.Parse error, or a check registered twice
func BuildValidations(specs []string) (*validation.Registry, error) {
	reg := Validations()
	for _, spec := range specs {
		if slices.Contains(PlannedValidations, spec) {
			return nil, fmt.Errorf("appearances: validation %q is planned but not implemented", spec)
		}
		c, err := validation.Parse(spec)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
