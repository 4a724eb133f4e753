package seeding

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/bracketforge/tournament-engine/models"
)

// RandomEngine performs a uniformly random permutation and pairs sequentially.
// Seed numbers under this strategy are position labels, not skill indicators.
// The entropy source is injectable so tests can fix it for determinism.
type RandomEngine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// NewRandomEngine builds a random seeding engine. A nil source falls back to
// a time-seeded one.
func NewRandomEngine(src rand.Source, logger *slog.Logger) *RandomEngine {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomEngine{rng: rand.New(src), logger: logger}
}

func (e *RandomEngine) Method() models.SeedingMethod {
	return models.SeedingRandom
}

func (e *RandomEngine) SeedParticipants(ctx context.Context, t *models.Tournament, participants []*models.Participant) ([]*models.Participant, error) {
	if err := checkMethod(e, t); err != nil {
		return nil, err
	}
	if len(participants) < models.MinParticipants {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughContenders, len(participants))
	}

	shuffled := make([]*models.Participant, len(participants))
	copy(shuffled, participants)

	e.mu.Lock()
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	e.mu.Unlock()

	for i, p := range shuffled {
		p.Seed = i + 1
	}
	return shuffled, nil
}

func (e *RandomEngine) ReseedParticipants(ctx context.Context, t *models.Tournament, remaining []*models.Participant, completedRoundNumber int) ([]*models.Participant, error) {
	reshuffled, err := e.SeedParticipants(ctx, t, remaining)
	if err != nil {
		return nil, err
	}
	e.logger.Info("re-shuffled remaining participants",
		slog.Int("tournament_id", t.ID),
		slog.Int("after_round", completedRoundNumber),
		slog.Int("remaining", len(reshuffled)))
	return reshuffled, nil
}

func (e *RandomEngine) GeneratePairings(ctx context.Context, t *models.Tournament, participants []*models.Participant, roundNumber int) ([][2]*models.Participant, error) {
	if err := checkMethod(e, t); err != nil {
		return nil, err
	}
	n := len(participants)
	if n < models.MinParticipants {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughContenders, n)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrOddPairingCount, n)
	}

	pairings := make([][2]*models.Participant, 0, n/2)
	for i := 0; i < n; i += 2 {
		pairings = append(pairings, [2]*models.Participant{participants[i], participants[i+1]})
	}
	return pairings, nil
}
