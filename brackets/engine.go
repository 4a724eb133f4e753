package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

var (
	ErrFormatMismatch        = errors.New("tournament format does not match this rules engine")
	ErrFormatUnsupported     = errors.New("unsupported tournament format")
	ErrNotEnoughParticipants = errors.New("not enough participants for a bracket")
	ErrParticipantCountRange = errors.New("participant count out of the supported range")
)

// RulesEngine owns all bracket-shape logic for one tournament format: round
// count, initial construction (including byes), next-round generation from a
// completed round's winners, completion detection and winner extraction.
// Engines are stateless and shared across concurrent tournaments; advancement
// is a pure function of (completed round, remaining participants) rather than
// a linked match graph.
type RulesEngine interface {
	Format() models.TournamentFormat

	CalculateTotalRounds(participantCount int) (int, error)

	ValidateConfiguration(tournament *models.Tournament, participantCount int) error

	// GenerateInitialBracket builds the first round(s) from participants in
	// seed order. Bye matches come back already completed.
	GenerateInitialBracket(ctx context.Context, tournament *models.Tournament, seeded []*models.Participant) ([]*models.Round, error)

	// GenerateNextRound pairs the completed round's winners into new rounds.
	// An empty result means a single winner remains; callers must consult
	// IsTournamentComplete, this method never flips tournament status.
	GenerateNextRound(ctx context.Context, tournament *models.Tournament, completedRound *models.Round, currentParticipants []*models.Participant) ([]*models.Round, error)

	IsTournamentComplete(tournament *models.Tournament, rounds []*models.Round) bool

	// TournamentWinners and TournamentRunnersUp read the decided final match;
	// empty until the tournament is complete.
	TournamentWinners(rounds []*models.Round) []int64
	TournamentRunnersUp(rounds []*models.Round) []int64

	// HandleParticipantDropout performs format-specific bracket surgery for a
	// dropout. Single elimination currently leaves the bracket untouched (see
	// DESIGN.md); the hook exists so other formats can reroute.
	HandleParticipantDropout(ctx context.Context, tournament *models.Tournament, rounds []*models.Round, participantID int64) error
}

// Registry maps tournament formats to rules engine instances, built once at
// process start.
type Registry struct {
	engines map[models.TournamentFormat]RulesEngine
}

func NewRegistry(engines ...RulesEngine) *Registry {
	r := &Registry{engines: make(map[models.TournamentFormat]RulesEngine, len(engines))}
	for _, e := range engines {
		r.engines[e.Format()] = e
	}
	return r
}

func (r *Registry) Resolve(format models.TournamentFormat) (RulesEngine, error) {
	engine, ok := r.engines[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFormatUnsupported, format)
	}
	return engine, nil
}

// RoundName derives the display name from the distance to the final round,
// not from the bracket size.
func RoundName(totalRounds, roundNumber int) string {
	switch totalRounds - roundNumber {
	case 0:
		return "Finals"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	}
	return fmt.Sprintf("Round %d", roundNumber)
}
