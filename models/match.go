package models

import "time"

// Match belongs to exactly one round. The team slots hold participant IDs
// (a slice per side so doubles pairs fit the same shape); an empty slot means
// "to be determined". Result fields are written exactly once at completion.
type Match struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	RoundID      int       `json:"round_id" db:"round_id"`
	DisplayID    string    `json:"display_id" db:"display_id"`
	Position     int       `json:"position" db:"position"`
	Team1        []int64   `json:"team1_participant_ids,omitempty" db:"team1_participant_ids"`
	Team2        []int64   `json:"team2_participant_ids,omitempty" db:"team2_participant_ids"`
	Team1Seed    *int      `json:"team1_seed,omitempty" db:"team1_seed"`
	Team2Seed    *int      `json:"team2_seed,omitempty" db:"team2_seed"`
	IsBye        bool      `json:"is_bye" db:"is_bye"`
	Completed    bool      `json:"completed" db:"completed"`
	Winners      []int64   `json:"winner_participant_ids,omitempty" db:"winner_participant_ids"`
	Losers       []int64   `json:"loser_participant_ids,omitempty" db:"loser_participant_ids"`
	Score1       *int      `json:"score1,omitempty" db:"score1"`
	Score2       *int      `json:"score2,omitempty" db:"score2"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Bye reports whether the match is a true bye: exactly one side populated.
// Derived from slot population; the stored IsBye flag is never trusted when
// both slots are filled.
func (m *Match) Bye() bool {
	return (len(m.Team1) > 0) != (len(m.Team2) > 0)
}

// BothSidesSet reports whether both team slots are populated.
func (m *Match) BothSidesSet() bool {
	return len(m.Team1) > 0 && len(m.Team2) > 0
}

// SideOf returns which team slot (1 or 2) the given participant set occupies,
// or 0 if it matches neither. Order within a side does not matter.
func (m *Match) SideOf(participantIDs []int64) int {
	switch {
	case sameIDSet(m.Team1, participantIDs):
		return 1
	case sameIDSet(m.Team2, participantIDs):
		return 2
	}
	return 0
}

func sameIDSet(a, b []int64) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	seen := make(map[int64]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
