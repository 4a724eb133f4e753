package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/bracketforge/tournament-engine/brackets"
	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
	"github.com/bracketforge/tournament-engine/seeding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes -------------------------------------------------------

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	byID   map[int]*models.Tournament
	nextID int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byID: make(map[int]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now()
	clone := *t
	r.byID[t.ID] = &clone
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateProgress(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	stored, ok := r.byID[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.TotalRounds = t.TotalRounds
	stored.CurrentRound = t.CurrentRound
	stored.RoundReady = t.RoundReady
	stored.Status = t.Status
	stored.WinnerIDs = append([]int64(nil), t.WinnerIDs...)
	stored.RunnerUpIDs = append([]int64(nil), t.RunnerUpIDs...)
	stored.StartedAt = t.StartedAt
	stored.CompletedAt = t.CompletedAt
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	delete(r.byID, id)
	return nil
}

type fakeParticipantRepo struct {
	byID   map[int]*models.Participant
	nextID int
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{byID: make(map[int]*models.Participant), nextID: 1}
}

func (r *fakeParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	clone := *p
	r.byID[p.ID] = &clone
	return nil
}

func (r *fakeParticipantRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Participant, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, activeOnly bool) ([]*models.Participant, error) {
	out := make([]*models.Participant, 0)
	for _, p := range r.byID {
		if p.TournamentID != tournamentID {
			continue
		}
		if activeOnly && p.Eliminated {
			continue
		}
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seed != out[j].Seed {
			return out[i].Seed < out[j].Seed
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeParticipantRepo) UpdateSeeds(ctx context.Context, exec repositories.SQLExecutor, participants []*models.Participant) error {
	for _, p := range participants {
		stored, ok := r.byID[p.ID]
		if !ok {
			return repositories.ErrParticipantNotFound
		}
		stored.Seed = p.Seed
	}
	return nil
}

func (r *fakeParticipantRepo) MarkEliminated(ctx context.Context, exec repositories.SQLExecutor, participantIDs []int64, round int) error {
	for _, id := range participantIDs {
		p, ok := r.byID[int(id)]
		if !ok || p.Eliminated {
			continue
		}
		p.Eliminated = true
		elim := round
		p.EliminatedInRound = &elim
	}
	return nil
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, id int) error {
	delete(r.byID, id)
	return nil
}

type fakeRoundRepo struct {
	byID   map[int]*models.Round
	nextID int
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{byID: make(map[int]*models.Round), nextID: 1}
}

func (r *fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	round.ID = r.nextID
	r.nextID++
	round.CreatedAt = time.Now()
	clone := *round
	clone.Matches = nil
	r.byID[round.ID] = &clone
	return nil
}

func (r *fakeRoundRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Round, error) {
	round, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	clone := *round
	return &clone, nil
}

func (r *fakeRoundRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Round, error) {
	out := make([]*models.Round, 0)
	for _, round := range r.byID {
		if round.TournamentID == tournamentID {
			clone := *round
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeRoundRepo) ListByStatus(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status models.RoundStatus) ([]*models.Round, error) {
	all, _ := r.ListByTournament(ctx, exec, tournamentID)
	out := make([]*models.Round, 0)
	for _, round := range all {
		if round.Status == status {
			out = append(out, round)
		}
	}
	return out, nil
}

func (r *fakeRoundRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RoundStatus, startedAt, completedAt *time.Time) error {
	round, ok := r.byID[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.Status = status
	if startedAt != nil {
		round.StartedAt = startedAt
	}
	if completedAt != nil {
		round.CompletedAt = completedAt
	}
	return nil
}

type fakeMatchRepo struct {
	byID   map[int]*models.Match
	nextID int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{byID: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	m.ID = r.nextID
	r.nextID++
	m.CreatedAt = time.Now()
	clone := *m
	r.byID[m.ID] = &clone
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMatchRepo) ListByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) ([]models.Match, error) {
	out := make([]models.Match, 0)
	for _, m := range r.byID {
		if m.RoundID == roundID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Match, error) {
	out := make([]models.Match, 0)
	for _, m := range r.byID {
		if m.TournamentID == tournamentID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundID != out[j].RoundID {
			return out[i].RoundID < out[j].RoundID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, winners, losers []int64, score1, score2 *int) error {
	m, ok := r.byID[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Completed {
		return repositories.ErrMatchAlreadyCompleted
	}
	m.Completed = true
	m.Winners = append([]int64(nil), winners...)
	m.Losers = append([]int64(nil), losers...)
	m.Score1 = score1
	m.Score2 = score2
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Broadcast(tournamentID int, eventType string, payload interface{}) {
	n.events = append(n.events, eventType)
}

type mapRatingSource map[int]int

func (s mapRatingSource) Rating(ctx context.Context, playerID int, gameType models.GameType) (int, error) {
	rating, ok := s[playerID]
	if !ok {
		return 0, seeding.ErrRatingNotFound
	}
	return rating, nil
}

// --- fixture ---------------------------------------------------------------

type orchestratorFixture struct {
	orch            TournamentOrchestrator
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	roundRepo       *fakeRoundRepo
	matchRepo       *fakeMatchRepo
	notifier        *recordingNotifier
	tournamentID    int
}

// newOrchestratorFixture seeds a rating-seeded single elimination tournament
// with n participants whose ratings decrease with participant id, so
// participant i ends up with seed i.
func newOrchestratorFixture(t *testing.T, n int) *orchestratorFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tournamentRepo := newFakeTournamentRepo()
	participantRepo := newFakeParticipantRepo()
	roundRepo := newFakeRoundRepo()
	matchRepo := newFakeMatchRepo()
	notifier := &recordingNotifier{}

	ratings := make(mapRatingSource)
	tournament := &models.Tournament{
		Name:          "Winter Invitational",
		Format:        models.FormatSingleElimination,
		SeedingMethod: models.SeedingRating,
		GameType:      models.GameRankedSingles,
		OrganizerID:   1,
		Capacity:      models.MaxParticipants,
		Status:        models.TournamentCreated,
	}
	require.NoError(t, tournamentRepo.Create(context.Background(), tournament))

	for i := 1; i <= n; i++ {
		playerID := 100 + i
		ratings[playerID] = 2000 - i*50
		p := &models.Participant{TournamentID: tournament.ID, PlayerID: playerID}
		require.NoError(t, participantRepo.Create(context.Background(), p))
	}

	seeders := seeding.NewRegistry(
		seeding.NewRatingEngine(ratings, logger),
	)
	rules := brackets.NewRegistry(
		brackets.NewSingleEliminationEngine(logger),
	)

	orch := NewTournamentOrchestrator(
		fakeTxRunner{},
		tournamentRepo,
		participantRepo,
		roundRepo,
		matchRepo,
		rules,
		seeders,
		notifier,
		logger,
	)

	return &orchestratorFixture{
		orch:            orch,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
		notifier:        notifier,
		tournamentID:    tournament.ID,
	}
}

func (f *orchestratorFixture) activeRoundMatches(t *testing.T) []models.Match {
	t.Helper()
	rounds, err := f.roundRepo.ListByStatus(context.Background(), nil, f.tournamentID, models.RoundActive)
	require.NoError(t, err)
	require.NotEmpty(t, rounds)
	matches, err := f.matchRepo.ListByRound(context.Background(), nil, rounds[0].ID)
	require.NoError(t, err)
	return matches
}

func (f *orchestratorFixture) submitWinner(t *testing.T, m models.Match, winner []int64) *models.Match {
	t.Helper()
	result, err := f.orch.ProcessMatchResult(context.Background(), MatchResultInput{
		MatchID:              m.ID,
		WinnerParticipantIDs: winner,
		Score1:               2,
		Score2:               1,
	})
	require.NoError(t, err)
	return result
}

// --- tests -----------------------------------------------------------------

func TestOrchestratorFullEightPlayerTournament(t *testing.T) {
	f := newOrchestratorFixture(t, 8)
	ctx := context.Background()

	tournament, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentReadyToStart, tournament.Status)
	assert.Equal(t, 3, tournament.TotalRounds)
	assert.Equal(t, 1, tournament.CurrentRound)
	assert.True(t, tournament.RoundReady)
	require.Len(t, tournament.Rounds, 1)
	require.Len(t, tournament.Rounds[0].Matches, 4)

	// Participant i holds seed i; round one pairs 1v8, 2v7, 3v6, 4v5.
	participants, err := f.participantRepo.ListByTournament(ctx, nil, f.tournamentID, false)
	require.NoError(t, err)
	for i, p := range participants {
		assert.Equal(t, i+1, p.Seed)
		assert.Equal(t, i+1, p.ID)
	}

	rounds, err := f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, models.RoundActive, rounds[0].Status)

	stored, err := f.tournamentRepo.GetByID(ctx, nil, f.tournamentID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, stored.Status)
	require.NotNil(t, stored.StartedAt)

	// Round one: favorites win except seed 7 upsetting seed 2.
	matches := f.activeRoundMatches(t)
	require.Len(t, matches, 4)
	f.submitWinner(t, matches[0], []int64{1})
	f.submitWinner(t, matches[1], []int64{7})
	f.submitWinner(t, matches[2], []int64{3})

	// Tournament does not advance until the last result lands.
	stored, _ = f.tournamentRepo.GetByID(ctx, nil, f.tournamentID)
	assert.Equal(t, models.TournamentInProgress, stored.Status)

	f.submitWinner(t, matches[3], []int64{5})

	stored, _ = f.tournamentRepo.GetByID(ctx, nil, f.tournamentID)
	assert.Equal(t, models.TournamentRoundComplete, stored.Status)
	assert.Equal(t, 2, stored.CurrentRound)
	assert.True(t, stored.RoundReady)

	// Semifinals: winners advance in bracket order, (1 vs 7) and (3 vs 5).
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)
	matches = f.activeRoundMatches(t)
	require.Len(t, matches, 2)
	assert.Equal(t, "Semifinals", mustRound(t, f, matches[0].RoundID).Name)
	assert.Equal(t, []int64{1}, matches[0].Team1)
	assert.Equal(t, []int64{7}, matches[0].Team2)
	assert.Equal(t, []int64{3}, matches[1].Team1)
	assert.Equal(t, []int64{5}, matches[1].Team2)

	f.submitWinner(t, matches[0], []int64{1})
	f.submitWinner(t, matches[1], []int64{5})

	// Finals.
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)
	matches = f.activeRoundMatches(t)
	require.Len(t, matches, 1)
	final := mustRound(t, f, matches[0].RoundID)
	assert.Equal(t, models.SegmentFinal, final.Segment)
	assert.Equal(t, "Finals", final.Name)

	f.submitWinner(t, matches[0], []int64{5})

	stored, _ = f.tournamentRepo.GetByID(ctx, nil, f.tournamentID)
	assert.Equal(t, models.TournamentCompleted, stored.Status)
	assert.Equal(t, []int64{5}, stored.WinnerIDs)
	assert.Equal(t, []int64{1}, stored.RunnerUpIDs)
	require.NotNil(t, stored.CompletedAt)
	assert.False(t, stored.RoundReady)

	assert.Contains(t, f.notifier.events, "TOURNAMENT_COMPLETED")
	assert.Contains(t, f.notifier.events, "ROUND_STARTED")
	assert.Contains(t, f.notifier.events, "BRACKET_UPDATED")
}

func TestOrchestratorFivePlayerByes(t *testing.T) {
	f := newOrchestratorFixture(t, 5)
	ctx := context.Background()

	tournament, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 3, tournament.TotalRounds)

	require.Len(t, tournament.Rounds, 1)
	matches := tournament.Rounds[0].Matches
	require.Len(t, matches, 4)

	// Top three seeds skip round one; seeds 4 and 5 play.
	byes, played := 0, 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			assert.True(t, m.Completed)
			require.Len(t, m.Winners, 1)
		} else {
			played++
			assert.True(t, m.BothSidesSet())
		}
	}
	assert.Equal(t, 3, byes)
	assert.Equal(t, 1, played)

	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	// The lone played match decides the round.
	active := f.activeRoundMatches(t)
	var pending *models.Match
	for i := range active {
		if !active[i].Completed {
			pending = &active[i]
		}
	}
	require.NotNil(t, pending)
	f.submitWinner(t, *pending, []int64{4})

	stored, _ := f.tournamentRepo.GetByID(ctx, nil, f.tournamentID)
	assert.Equal(t, models.TournamentRoundComplete, stored.Status)
	assert.Equal(t, 2, stored.CurrentRound)

	// Round two holds the three bye recipients plus the winner.
	rounds, err := f.roundRepo.ListByStatus(ctx, nil, f.tournamentID, models.RoundReady)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	next, err := f.matchRepo.ListByRound(ctx, nil, rounds[0].ID)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, []int64{1}, next[0].Team1)
	assert.Equal(t, []int64{2}, next[0].Team2)
	assert.Equal(t, []int64{3}, next[1].Team1)
	assert.Equal(t, []int64{4}, next[1].Team2)
}

func TestOrchestratorInitializeIsIdempotent(t *testing.T) {
	f := newOrchestratorFixture(t, 4)
	ctx := context.Background()

	first, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	require.Len(t, first.Rounds, 1)

	second, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	rounds, err := f.roundRepo.ListByTournament(ctx, nil, f.tournamentID)
	require.NoError(t, err)
	assert.Len(t, rounds, 1, "re-initialization must not duplicate rounds")
}

func TestOrchestratorStartNextRoundRequiresReadyRound(t *testing.T) {
	f := newOrchestratorFixture(t, 4)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	// The round is now active, not ready.
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	assert.ErrorIs(t, err, ErrNoRoundReady)
}

func TestOrchestratorRejectsInvalidResults(t *testing.T) {
	f := newOrchestratorFixture(t, 5)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	matches := f.activeRoundMatches(t)
	var bye, pending *models.Match
	for i := range matches {
		if matches[i].IsBye {
			if bye == nil {
				bye = &matches[i]
			}
		} else {
			pending = &matches[i]
		}
	}
	require.NotNil(t, bye)
	require.NotNil(t, pending)

	_, err = f.orch.ProcessMatchResult(ctx, MatchResultInput{
		MatchID:              bye.ID,
		WinnerParticipantIDs: bye.Team1,
	})
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted, "bye matches are already decided")

	_, err = f.orch.ProcessMatchResult(ctx, MatchResultInput{
		MatchID:              pending.ID,
		WinnerParticipantIDs: []int64{99},
	})
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	result := f.submitWinner(t, *pending, pending.Team1)
	assert.True(t, result.Completed)

	_, err = f.orch.ProcessMatchResult(ctx, MatchResultInput{
		MatchID:              pending.ID,
		WinnerParticipantIDs: pending.Team1,
	})
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestOrchestratorRejectsHalfPopulatedMatch(t *testing.T) {
	f := newOrchestratorFixture(t, 4)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	rounds, err := f.roundRepo.ListByStatus(ctx, nil, f.tournamentID, models.RoundActive)
	require.NoError(t, err)
	require.Len(t, rounds, 1)

	// A corrupted row with one populated slot must never complete silently.
	broken := &models.Match{
		TournamentID: f.tournamentID,
		RoundID:      rounds[0].ID,
		DisplayID:    "R1-M9",
		Position:     9,
		Team1:        []int64{1},
	}
	require.NoError(t, f.matchRepo.Create(ctx, nil, broken))

	_, err = f.orch.ProcessMatchResult(ctx, MatchResultInput{
		MatchID:              broken.ID,
		WinnerParticipantIDs: []int64{1},
	})
	assert.ErrorIs(t, err, ErrMatchIsBye)

	// Both slots empty is equally unresolvable.
	empty := &models.Match{
		TournamentID: f.tournamentID,
		RoundID:      rounds[0].ID,
		DisplayID:    "R1-M10",
		Position:     10,
	}
	require.NoError(t, f.matchRepo.Create(ctx, nil, empty))

	_, err = f.orch.ProcessMatchResult(ctx, MatchResultInput{
		MatchID:              empty.ID,
		WinnerParticipantIDs: []int64{1},
	})
	assert.ErrorIs(t, err, ErrMatchMissingOpponent)
}

func TestOrchestratorResultRequiresActiveRound(t *testing.T) {
	f := newOrchestratorFixture(t, 4)
	ctx := context.Background()

	tournament, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	require.Len(t, tournament.Rounds, 1)
	match := tournament.Rounds[0].Matches[0]

	_, err = f.orch.ProcessMatchResult(ctx, MatchResultInput{
		MatchID:              match.ID,
		WinnerParticipantIDs: match.Team1,
	})
	assert.ErrorIs(t, err, ErrRoundNotActive)
}

func TestOrchestratorDropout(t *testing.T) {
	f := newOrchestratorFixture(t, 8)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	require.NoError(t, f.orch.HandleParticipantDropout(ctx, f.tournamentID, 2))

	p, err := f.participantRepo.GetByID(ctx, nil, 2)
	require.NoError(t, err)
	assert.True(t, p.Eliminated)
	require.NotNil(t, p.EliminatedInRound)
	assert.Equal(t, 1, *p.EliminatedInRound)

	err = f.orch.HandleParticipantDropout(ctx, f.tournamentID, 2)
	assert.ErrorIs(t, err, ErrParticipantEliminated)

	err = f.orch.HandleParticipantDropout(ctx, f.tournamentID, 999)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestOrchestratorStandings(t *testing.T) {
	f := newOrchestratorFixture(t, 4)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	// Round one: 1 beats 4, 2 beats 3. Round two: 2 beats 1.
	matches := f.activeRoundMatches(t)
	f.submitWinner(t, matches[0], []int64{1})
	f.submitWinner(t, matches[1], []int64{2})
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)
	matches = f.activeRoundMatches(t)
	f.submitWinner(t, matches[0], []int64{2})

	standings, err := f.orch.GetCurrentStandings(ctx, f.tournamentID)
	require.NoError(t, err)
	require.Len(t, standings, 4)

	// Champion first, then the finalist, then round-one losers by seed.
	assert.Equal(t, 2, standings[0].Participant.ID)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, 1, standings[1].Participant.ID)
	assert.Equal(t, 3, standings[2].Participant.ID)
	assert.Equal(t, 4, standings[3].Participant.ID)
}

func TestOrchestratorUpcomingMatches(t *testing.T) {
	f := newOrchestratorFixture(t, 5)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)

	// Nothing is upcoming before the round starts.
	upcoming, err := f.orch.GetUpcomingMatches(ctx, f.tournamentID)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	// Byes never show up as upcoming.
	upcoming, err = f.orch.GetUpcomingMatches(ctx, f.tournamentID)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.True(t, upcoming[0].BothSidesSet())
}

func TestOrchestratorBracketSnapshot(t *testing.T) {
	f := newOrchestratorFixture(t, 8)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)

	snapshot, err := f.orch.GetBracketSnapshot(ctx, f.tournamentID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Participants, 8)
	require.Len(t, snapshot.Rounds, 1)
	assert.Len(t, snapshot.Rounds[0].Matches, 4)
}

func TestOrchestratorCompletedTournamentIsFrozen(t *testing.T) {
	f := newOrchestratorFixture(t, 2)
	ctx := context.Background()

	_, err := f.orch.InitializeTournament(ctx, f.tournamentID)
	require.NoError(t, err)
	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	require.NoError(t, err)

	matches := f.activeRoundMatches(t)
	require.Len(t, matches, 1)
	f.submitWinner(t, matches[0], []int64{1})

	stored, _ := f.tournamentRepo.GetByID(ctx, nil, f.tournamentID)
	require.Equal(t, models.TournamentCompleted, stored.Status)

	_, err = f.orch.StartNextRound(ctx, f.tournamentID)
	assert.ErrorIs(t, err, ErrTournamentAlreadyComplete)

	err = f.orch.HandleParticipantDropout(ctx, f.tournamentID, 1)
	assert.ErrorIs(t, err, ErrTournamentAlreadyComplete)
}

func mustRound(t *testing.T, f *orchestratorFixture, roundID int) *models.Round {
	t.Helper()
	round, err := f.roundRepo.GetByID(context.Background(), nil, roundID)
	require.NoError(t, err)
	return round
}
