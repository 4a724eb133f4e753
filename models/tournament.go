package models

import "time"

// TournamentFormat identifies the bracket rules engine a tournament runs under.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

// SeedingMethod identifies the strategy used to order participants into seeds.
type SeedingMethod string

const (
	SeedingRating SeedingMethod = "rating"
	SeedingRandom SeedingMethod = "random"
)

// GameType is the key under which a player's rating is looked up.
type GameType string

const (
	GameRankedSingles GameType = "ranked_singles"
	GameRankedDoubles GameType = "ranked_doubles"
	GameNormalSingles GameType = "normal_singles"
	GameNormalDoubles GameType = "normal_doubles"
)

// TournamentStatus values match the ENUM in the database.
type TournamentStatus string

const (
	TournamentCreated       TournamentStatus = "created"
	TournamentReadyToStart  TournamentStatus = "ready_to_start"
	TournamentInProgress    TournamentStatus = "in_progress"
	TournamentRoundComplete TournamentStatus = "round_complete"
	TournamentCompleted     TournamentStatus = "completed"
	TournamentCancelled     TournamentStatus = "cancelled"
)

// Capacity bounds enforced at configuration validation time. The upper bound
// is a deliberate product limit, not a mathematical one.
const (
	MinParticipants = 2
	MaxParticipants = 16
)

// Tournament is the root aggregate. TotalRounds, CurrentRound, RoundReady,
// Status and the winner fields are written only by the orchestrator.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Format          TournamentFormat `json:"format" db:"format"`
	SeedingMethod   SeedingMethod    `json:"seeding_method" db:"seeding_method"`
	GameType        GameType         `json:"game_type" db:"game_type"`
	OrganizerID     int              `json:"organizer_id" db:"organizer_id"`
	Capacity        int              `json:"capacity" db:"capacity"`
	ReseedEachRound bool             `json:"reseed_each_round" db:"reseed_each_round"`
	TotalRounds     int              `json:"total_rounds" db:"total_rounds"`
	CurrentRound    int              `json:"current_round" db:"current_round"`
	RoundReady      bool             `json:"round_ready" db:"round_ready"`
	Status          TournamentStatus `json:"status" db:"status"`
	WinnerIDs       []int64          `json:"winner_participant_ids,omitempty" db:"winner_participant_ids"`
	RunnerUpIDs     []int64          `json:"runner_up_participant_ids,omitempty" db:"runner_up_participant_ids"`
	LogoKey         *string          `json:"-" db:"logo_key"`
	LogoURL         *string          `json:"logo_url,omitempty" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	StartedAt       *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty" db:"completed_at"`

	// Optional linked data, populated by services, not mapped directly.
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Rounds       []Round       `json:"rounds,omitempty" db:"-"`
}

// Advanced reports whether the bracket has already been generated, used as an
// idempotency guard against double initialization.
func (t *Tournament) Advanced() bool {
	switch t.Status {
	case TournamentReadyToStart, TournamentInProgress, TournamentRoundComplete, TournamentCompleted:
		return true
	}
	return false
}
