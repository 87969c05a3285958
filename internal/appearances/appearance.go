// Package appearances turns scraped appearance records (one per player per
// game) into the typed, deduplicated appearances table.
package appearances

// Output column names, in table order.
const (
	ColPlayerID      = "player_id"
	ColGameID        = "game_id"
	ColAppearanceID  = "appearance_id"
	ColLeagueID      = "league_id"
	ColPlayerClubID  = "player_club_id"
	ColGoals         = "goals"
	ColAssists       = "assists"
	ColMinutesPlayed = "minutes_played"
	ColYellowCards   = "yellow_cards"
	ColRedCards      = "red_cards"
	ColURL           = "url"
)

// Columns is the output column order.
var Columns = []string{
	ColPlayerID,
	ColGameID,
	ColAppearanceID,
	ColLeagueID,
	ColPlayerClubID,
	ColGoals,
	ColAssists,
	ColMinutesPlayed,
	ColYellowCards,
	ColRedCards,
	ColURL,
}

// Flattened input paths.
const (
	PathPlayerLink        = "parent.href"
	PathGameLink          = "result.href"
	PathClubLink          = "for.href"
	PathHref              = "href"
	PathCompetitionCode   = "competition_code"
	PathGoals             = "goals"
	PathAssists           = "assists"
	PathMinutesPlayed     = "minutes_played"
	PathYellowCards       = "yellow_cards"
	PathSecondYellowCards = "second_yellow_cards"
	PathRedCards          = "red_cards"
)

// RequiredPaths returns the paths every allow-listed record must carry.
// competition_code is required whenever there is at least one record.
func RequiredPaths() []string {
	return []string{PathPlayerLink, PathGameLink, PathClubLink, PathHref}
}

// InputPaths returns every path the normalizer reads, required ones first.
func InputPaths() []string {
	return append(RequiredPaths(),
		PathCompetitionCode,
		PathGoals,
		PathAssists,
		PathMinutesPlayed,
		PathYellowCards,
		PathSecondYellowCards,
		PathRedCards,
	)
}

// Checkpoint names, in the order they are written.
const (
	CheckpointNormalized = "json_normalized"
	CheckpointFiltered   = "json_normalized_filtered"
	CheckpointPrep       = "prep"
)

// Appearance is one output row.
type Appearance struct {
	PlayerID      int64
	GameID        int64
	AppearanceID  int64
	LeagueID      string
	PlayerClubID  int64
	Goals         int64
	Assists       int64
	MinutesPlayed int64
	YellowCards   int64
	RedCards      int64
	URL           string
}

// Row returns a in Columns order.
func (a Appearance) Row() []any {
	return []any{
		a.PlayerID,
		a.GameID,
		a.AppearanceID,
		a.LeagueID,
		a.PlayerClubID,
		a.Goals,
		a.Assists,
		a.MinutesPlayed,
		a.YellowCards,
		a.RedCards,
		a.URL,
	}
}

// Key returns the natural key of a.
func (a Appearance) Key() KeyPair {
	return KeyPair{PlayerID: a.PlayerID, GameID: a.GameID}
}
