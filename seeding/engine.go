package seeding

import (
	"context"
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
)

var (
	ErrMethodMismatch      = errors.New("tournament seeding method does not match this engine")
	ErrMethodUnsupported   = errors.New("unsupported seeding method")
	ErrNotEnoughContenders = errors.New("at least two participants are required for seeding")
	ErrOddPairingCount     = errors.New("cannot pair an odd number of participants")
)

// UnratedRating is the sentinel assigned when the rating source has no entry
// for a player. Seeding degrades gracefully instead of failing the tournament.
const UnratedRating = 0

// RatingSource supplies per-player ratings keyed by game type. Implementations
// live outside the seeding package (the rating repository in this repo); ELO
// computation itself is not the engine's concern.
type RatingSource interface {
	Rating(ctx context.Context, playerID int, gameType models.GameType) (int, error)
}

// ErrRatingNotFound is returned by RatingSource implementations when a player
// has no rating for the requested game type.
var ErrRatingNotFound = errors.New("rating not found")

// Engine orders participants into seed positions and produces pairings for a
// round. Engines mutate the Seed field of the participants passed in and never
// persist; persistence is the orchestrator's responsibility. Engines are
// stateless and safe to share across concurrent tournaments.
type Engine interface {
	Method() models.SeedingMethod

	// SeedParticipants assigns seeds 1..n and returns the participants in
	// seed order.
	SeedParticipants(ctx context.Context, tournament *models.Tournament, participants []*models.Participant) ([]*models.Participant, error)

	// ReseedParticipants re-derives seed order over the remaining participant
	// set after completedRoundNumber. It never changes set membership.
	ReseedParticipants(ctx context.Context, tournament *models.Tournament, remaining []*models.Participant, completedRoundNumber int) ([]*models.Participant, error)

	// GeneratePairings produces 2-element pairings for a round. The
	// participant count must be even; byes are the rules engine's concern.
	GeneratePairings(ctx context.Context, tournament *models.Tournament, participants []*models.Participant, roundNumber int) ([][2]*models.Participant, error)
}

// Registry maps seeding methods to engine instances. Built once at process
// start, read-only afterwards.
type Registry struct {
	engines map[models.SeedingMethod]Engine
}

func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[models.SeedingMethod]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Method()] = e
	}
	return r
}

func (r *Registry) Resolve(method models.SeedingMethod) (Engine, error) {
	engine, ok := r.engines[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMethodUnsupported, method)
	}
	return engine, nil
}

func checkMethod(engine Engine, t *models.Tournament) error {
	if t.SeedingMethod != engine.Method() {
		return fmt.Errorf("%w: tournament declares %q, engine is %q", ErrMethodMismatch, t.SeedingMethod, engine.Method())
	}
	return nil
}
