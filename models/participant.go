package models

import "time"

// Participant is a tournament-scoped wrapper around a player identity.
// Seed is assigned at seeding time (1 = best) and may be reassigned between
// rounds when re-seeding is enabled. Elimination fields are set by dropout
// handling or by losing a match.
type Participant struct {
	ID                int        `json:"id" db:"id"`
	TournamentID      int        `json:"tournament_id" db:"tournament_id"`
	PlayerID          int        `json:"player_id" db:"player_id"`
	Seed              int        `json:"seed" db:"seed"`
	Eliminated        bool       `json:"eliminated" db:"eliminated"`
	EliminatedInRound *int       `json:"eliminated_in_round,omitempty" db:"eliminated_in_round"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`

	Player *User `json:"player,omitempty" db:"-"`
}

// Standing is one row of the live tournament table: active participants first,
// then participants that survived longer, ties broken by original seed.
type Standing struct {
	Rank        int         `json:"rank"`
	Participant Participant `json:"participant"`
}
