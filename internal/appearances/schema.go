package appearances

import "prep/internal/schema"

// Schema declares the appearances table. It does not depend on any data.
func Schema() schema.Schema {
	integer := func(name string) schema.Field {
		return schema.Field{Name: name, Type: schema.TypeInteger}
	}
	return schema.Schema{
		Fields: []schema.Field{
			integer(ColPlayerID),
			integer(ColGameID),
			integer(ColAppearanceID),
			{Name: ColLeagueID, Type: schema.TypeString},
			integer(ColPlayerClubID),
			integer(ColGoals),
			integer(ColAssists),
			integer(ColMinutesPlayed),
			integer(ColYellowCards),
			integer(ColRedCards),
			{Name: ColURL, Type: schema.TypeString, Format: schema.FormatURI},
		},
		PrimaryKey: []string{ColAppearanceID},
		ForeignKeys: []schema.ForeignKey{{
			Fields: schema.FieldList{ColGameID},
			Reference: schema.Reference{
				Resource: "games",
				Fields:   schema.FieldList{"game_id"},
			},
		}},
	}
}
