package seeding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bracketforge/tournament-engine/models"
)

// RatingEngine seeds participants by descending rating for the tournament's
// game type. Ties keep stable input order. Pairings follow the standard
// bracket rule: seed k meets seed 2n+1-k, so top seeds meet as late as
// possible.
type RatingEngine struct {
	ratings RatingSource
	logger  *slog.Logger
}

func NewRatingEngine(ratings RatingSource, logger *slog.Logger) *RatingEngine {
	return &RatingEngine{ratings: ratings, logger: logger}
}

func (e *RatingEngine) Method() models.SeedingMethod {
	return models.SeedingRating
}

func (e *RatingEngine) SeedParticipants(ctx context.Context, t *models.Tournament, participants []*models.Participant) ([]*models.Participant, error) {
	if err := checkMethod(e, t); err != nil {
		return nil, err
	}
	if len(participants) < models.MinParticipants {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughContenders, len(participants))
	}

	rated := make([]*models.Participant, len(participants))
	copy(rated, participants)

	ratings := make(map[int]int, len(rated))
	for _, p := range rated {
		rating, err := e.ratings.Rating(ctx, p.PlayerID, t.GameType)
		switch {
		case err == nil:
			ratings[p.ID] = rating
		case errors.Is(err, ErrRatingNotFound):
			// Missing rating degrades to the unrated sentinel rather than
			// blocking the whole tournament over one player.
			ratings[p.ID] = UnratedRating
			e.logger.Warn("player has no rating, seeding as unrated",
				slog.Int("tournament_id", t.ID),
				slog.Int("player_id", p.PlayerID),
				slog.String("game_type", string(t.GameType)))
		default:
			return nil, fmt.Errorf("failed to look up rating for player %d: %w", p.PlayerID, err)
		}
	}

	sort.SliceStable(rated, func(i, j int) bool {
		return ratings[rated[i].ID] > ratings[rated[j].ID]
	})

	for i, p := range rated {
		p.Seed = i + 1
	}
	return rated, nil
}

func (e *RatingEngine) ReseedParticipants(ctx context.Context, t *models.Tournament, remaining []*models.Participant, completedRoundNumber int) ([]*models.Participant, error) {
	reseeded, err := e.SeedParticipants(ctx, t, remaining)
	if err != nil {
		return nil, err
	}
	e.logger.Info("re-seeded remaining participants",
		slog.Int("tournament_id", t.ID),
		slog.Int("after_round", completedRoundNumber),
		slog.Int("remaining", len(reseeded)))
	return reseeded, nil
}

func (e *RatingEngine) GeneratePairings(ctx context.Context, t *models.Tournament, participants []*models.Participant, roundNumber int) ([][2]*models.Participant, error) {
	if err := checkMethod(e, t); err != nil {
		return nil, err
	}
	return pairTopToBottom(participants)
}

// pairTopToBottom pairs seed k with seed 2n+1-k: 1 vs 2n, 2 vs 2n-1, etc.
func pairTopToBottom(participants []*models.Participant) ([][2]*models.Participant, error) {
	n := len(participants)
	if n < models.MinParticipants {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughContenders, n)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrOddPairingCount, n)
	}

	ordered := make([]*models.Participant, n)
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seed < ordered[j].Seed
	})

	pairings := make([][2]*models.Participant, 0, n/2)
	for i := 0; i < n/2; i++ {
		pairings = append(pairings, [2]*models.Participant{ordered[i], ordered[n-1-i]})
	}
	return pairings, nil
}
