package seeding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRatingSource struct {
	ratings map[int]int
	failFor map[int]error
}

func (s *stubRatingSource) Rating(ctx context.Context, playerID int, gameType models.GameType) (int, error) {
	if err, ok := s.failFor[playerID]; ok {
		return 0, err
	}
	rating, ok := s.ratings[playerID]
	if !ok {
		return 0, ErrRatingNotFound
	}
	return rating, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ratingTournament() *models.Tournament {
	return &models.Tournament{
		ID:            1,
		SeedingMethod: models.SeedingRating,
		GameType:      models.GameRankedSingles,
	}
}

func participants(ids ...int) []*models.Participant {
	ps := make([]*models.Participant, len(ids))
	for i, id := range ids {
		ps[i] = &models.Participant{ID: id, TournamentID: 1, PlayerID: 100 + id}
	}
	return ps
}

func TestRatingEngineSeedsByDescendingRating(t *testing.T) {
	source := &stubRatingSource{ratings: map[int]int{
		101: 1200,
		102: 1800,
		103: 1500,
		104: 2100,
	}}
	engine := NewRatingEngine(source, testLogger())

	seeded, err := engine.SeedParticipants(context.Background(), ratingTournament(), participants(1, 2, 3, 4))
	require.NoError(t, err)
	require.Len(t, seeded, 4)

	// Player 104 (2100) first, then 102 (1800), 103 (1500), 101 (1200).
	assert.Equal(t, []int{104, 102, 103, 101}, playerOrder(seeded))
	for i, p := range seeded {
		assert.Equal(t, i+1, p.Seed)
	}
}

func TestRatingEngineTiesKeepInputOrder(t *testing.T) {
	source := &stubRatingSource{ratings: map[int]int{
		101: 1500,
		102: 1500,
		103: 1500,
		104: 1500,
	}}
	engine := NewRatingEngine(source, testLogger())

	seeded, err := engine.SeedParticipants(context.Background(), ratingTournament(), participants(1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103, 104}, playerOrder(seeded))
}

func TestRatingEngineMissingRatingSeedsLast(t *testing.T) {
	source := &stubRatingSource{ratings: map[int]int{
		101: 900,
		103: 1600,
		104: 1100,
	}}
	engine := NewRatingEngine(source, testLogger())

	seeded, err := engine.SeedParticipants(context.Background(), ratingTournament(), participants(1, 2, 3, 4))
	require.NoError(t, err)

	// Player 102 has no rating and falls behind every rated player.
	assert.Equal(t, []int{103, 104, 101, 102}, playerOrder(seeded))
}

func TestRatingEngineLookupFailureAborts(t *testing.T) {
	boom := errors.New("rating store unavailable")
	source := &stubRatingSource{
		ratings: map[int]int{101: 900, 102: 1000},
		failFor: map[int]error{103: boom},
	}
	engine := NewRatingEngine(source, testLogger())

	_, err := engine.SeedParticipants(context.Background(), ratingTournament(), participants(1, 2, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRatingEngineMethodMismatch(t *testing.T) {
	engine := NewRatingEngine(&stubRatingSource{}, testLogger())
	tournament := ratingTournament()
	tournament.SeedingMethod = models.SeedingRandom

	_, err := engine.SeedParticipants(context.Background(), tournament, participants(1, 2))
	assert.ErrorIs(t, err, ErrMethodMismatch)
}

func TestRatingEngineNotEnoughContenders(t *testing.T) {
	engine := NewRatingEngine(&stubRatingSource{ratings: map[int]int{101: 1000}}, testLogger())

	_, err := engine.SeedParticipants(context.Background(), ratingTournament(), participants(1))
	assert.ErrorIs(t, err, ErrNotEnoughContenders)
}

func TestRatingEnginePairingsTopToBottom(t *testing.T) {
	source := &stubRatingSource{ratings: map[int]int{
		101: 800, 102: 700, 103: 600, 104: 500,
		105: 400, 106: 300, 107: 200, 108: 100,
	}}
	engine := NewRatingEngine(source, testLogger())

	seeded, err := engine.SeedParticipants(context.Background(), ratingTournament(), participants(1, 2, 3, 4, 5, 6, 7, 8))
	require.NoError(t, err)

	pairings, err := engine.GeneratePairings(context.Background(), ratingTournament(), seeded, 1)
	require.NoError(t, err)
	require.Len(t, pairings, 4)

	// Seed k meets seed 2n+1-k: 1v8, 2v7, 3v6, 4v5.
	for i, pair := range pairings {
		assert.Equal(t, i+1, pair[0].Seed)
		assert.Equal(t, 8-i, pair[1].Seed)
	}
}

func TestRatingEnginePairingsRejectOddCount(t *testing.T) {
	engine := NewRatingEngine(&stubRatingSource{}, testLogger())

	ps := participants(1, 2, 3)
	for i, p := range ps {
		p.Seed = i + 1
	}
	_, err := engine.GeneratePairings(context.Background(), ratingTournament(), ps, 1)
	assert.ErrorIs(t, err, ErrOddPairingCount)
}

func TestRatingEngineReseedKeepsMembership(t *testing.T) {
	source := &stubRatingSource{ratings: map[int]int{
		101: 100, 102: 300, 103: 200,
	}}
	engine := NewRatingEngine(source, testLogger())

	remaining := participants(1, 2, 3)
	reseeded, err := engine.ReseedParticipants(context.Background(), ratingTournament(), remaining, 1)
	require.NoError(t, err)

	assert.ElementsMatch(t, playerOrder(remaining), playerOrder(reseeded))
	assert.Equal(t, []int{102, 103, 101}, playerOrder(reseeded))
}

func playerOrder(ps []*models.Participant) []int {
	order := make([]int, len(ps))
	for i, p := range ps {
		order[i] = p.PlayerID
	}
	return order
}
