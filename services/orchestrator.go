package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bracketforge/tournament-engine/brackets"
	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/realtime"
	"github.com/bracketforge/tournament-engine/repositories"
	"github.com/bracketforge/tournament-engine/seeding"
	"golang.org/x/sync/errgroup"
)

// BracketNotifier pushes bracket events to live subscribers. The realtime hub
// implements it; a nil notifier disables pushes (tests, CLI tooling).
type BracketNotifier interface {
	Broadcast(tournamentID int, eventType string, payload interface{})
}

// MatchResultInput carries an externally played result into the engine.
type MatchResultInput struct {
	MatchID              int     `json:"match_id"`
	WinnerParticipantIDs []int64 `json:"winner_participant_ids"`
	Score1               int     `json:"score1"`
	Score2               int     `json:"score2"`
}

// TournamentOrchestrator is the only component with write access to
// tournament-level state. It drives the round-advancement state machine over
// the pluggable rules and seeding engines.
type TournamentOrchestrator interface {
	InitializeTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	StartNextRound(ctx context.Context, tournamentID int) ([]*models.Round, error)
	ProcessMatchResult(ctx context.Context, input MatchResultInput) (*models.Match, error)
	HandleParticipantDropout(ctx context.Context, tournamentID, participantID int) error
	GetCurrentStandings(ctx context.Context, tournamentID int) ([]models.Standing, error)
	GetUpcomingMatches(ctx context.Context, tournamentID int) ([]models.Match, error)
	GetBracketSnapshot(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type tournamentOrchestrator struct {
	tx              repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	roundRepo       repositories.RoundRepository
	matchRepo       repositories.MatchRepository
	rules           *brackets.Registry
	seeders         *seeding.Registry
	notifier        BracketNotifier
	logger          *slog.Logger
}

func NewTournamentOrchestrator(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	rules *brackets.Registry,
	seeders *seeding.Registry,
	notifier BracketNotifier,
	logger *slog.Logger,
) TournamentOrchestrator {
	return &tournamentOrchestrator{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		roundRepo:       roundRepo,
		matchRepo:       matchRepo,
		rules:           rules,
		seeders:         seeders,
		notifier:        notifier,
		logger:          logger,
	}
}

func (o *tournamentOrchestrator) InitializeTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	var result *models.Tournament

	err := o.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := o.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return o.mapRepoError(err)
		}

		// Idempotency guard: a bracket that already exists is not rebuilt.
		if t.Advanced() {
			o.logger.Info("tournament already initialized, skipping",
				slog.Int("tournament_id", t.ID), slog.String("status", string(t.Status)))
			result = t
			return nil
		}

		engine, err := o.rules.Resolve(t.Format)
		if err != nil {
			return err
		}
		seeder, err := o.seeders.Resolve(t.SeedingMethod)
		if err != nil {
			return err
		}

		participants, err := o.participantRepo.ListByTournament(ctx, exec, t.ID, false)
		if err != nil {
			return err
		}
		if err := engine.ValidateConfiguration(t, len(participants)); err != nil {
			return err
		}

		totalRounds, err := engine.CalculateTotalRounds(len(participants))
		if err != nil {
			return err
		}

		seeded, err := seeder.SeedParticipants(ctx, t, participants)
		if err != nil {
			return err
		}
		if err := o.participantRepo.UpdateSeeds(ctx, exec, seeded); err != nil {
			return err
		}

		t.TotalRounds = totalRounds
		rounds, err := engine.GenerateInitialBracket(ctx, t, seeded)
		if err != nil {
			return err
		}
		if err := o.persistRounds(ctx, exec, rounds); err != nil {
			return err
		}

		t.CurrentRound = 1
		t.RoundReady = true
		t.Status = models.TournamentReadyToStart
		if err := o.tournamentRepo.UpdateProgress(ctx, exec, t); err != nil {
			return err
		}

		for _, r := range rounds {
			t.Rounds = append(t.Rounds, *r)
		}
		result = t

		o.logger.Info("tournament initialized",
			slog.Int("tournament_id", t.ID),
			slog.Int("participants", len(participants)),
			slog.Int("total_rounds", totalRounds))
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.broadcast(tournamentID, realtime.EventBracketUpdated, result)
	return result, nil
}

func (o *tournamentOrchestrator) StartNextRound(ctx context.Context, tournamentID int) ([]*models.Round, error) {
	var started []*models.Round

	err := o.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := o.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return o.mapRepoError(err)
		}
		if t.Status == models.TournamentCompleted {
			return ErrTournamentAlreadyComplete
		}

		ready, err := o.roundRepo.ListByStatus(ctx, exec, t.ID, models.RoundReady)
		if err != nil {
			return err
		}
		if len(ready) == 0 {
			return ErrNoRoundReady
		}

		// Re-verify from durable match state that every earlier round is
		// complete; the caller's view is not trusted.
		all, err := o.loadRoundsWithMatches(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		firstReady := ready[0].RoundNumber
		for _, r := range all {
			if r.RoundNumber < firstReady && !r.Complete() {
				return fmt.Errorf("%w: round %d", ErrRoundNotComplete, r.RoundNumber)
			}
		}

		now := time.Now().UTC()
		for _, r := range ready {
			if err := o.roundRepo.UpdateStatus(ctx, exec, r.ID, models.RoundActive, &now, nil); err != nil {
				return err
			}
			r.Status = models.RoundActive
			r.StartedAt = &now
		}

		t.Status = models.TournamentInProgress
		t.RoundReady = false
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
		if err := o.tournamentRepo.UpdateProgress(ctx, exec, t); err != nil {
			return err
		}

		started = ready
		o.logger.Info("round started",
			slog.Int("tournament_id", t.ID), slog.Int("round", firstReady))
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.broadcast(tournamentID, realtime.EventRoundStarted, started)
	return started, nil
}

func (o *tournamentOrchestrator) ProcessMatchResult(ctx context.Context, input MatchResultInput) (*models.Match, error) {
	// Resolve the tournament outside the lock, then re-read under it.
	peek, err := o.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		return nil, o.mapRepoError(err)
	}

	var (
		result             *models.Match
		tournamentFinished bool
	)

	err = o.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := o.tournamentRepo.GetByIDForUpdate(ctx, exec, peek.TournamentID)
		if err != nil {
			return o.mapRepoError(err)
		}
		if t.Status == models.TournamentCompleted {
			return ErrTournamentAlreadyComplete
		}

		m, err := o.matchRepo.GetByID(ctx, exec, input.MatchID)
		if err != nil {
			return o.mapRepoError(err)
		}
		if m.Completed {
			return ErrMatchAlreadyCompleted
		}
		if m.Bye() {
			return ErrMatchIsBye
		}
		if !m.BothSidesSet() {
			// A half-populated non-bye match must fail loudly, never
			// silently complete.
			return fmt.Errorf("%w: %s", ErrMatchMissingOpponent, m.DisplayID)
		}

		side := m.SideOf(input.WinnerParticipantIDs)
		if side == 0 {
			return fmt.Errorf("%w: %s", ErrWinnerNotInMatch, m.DisplayID)
		}
		winners, losers := m.Team1, m.Team2
		if side == 2 {
			winners, losers = m.Team2, m.Team1
		}

		round, err := o.roundRepo.GetByID(ctx, exec, m.RoundID)
		if err != nil {
			return o.mapRepoError(err)
		}
		if round.Status != models.RoundActive {
			return fmt.Errorf("%w: round %d is %s", ErrRoundNotActive, round.RoundNumber, round.Status)
		}

		score1, score2 := input.Score1, input.Score2
		if err := o.matchRepo.Complete(ctx, exec, m.ID, winners, losers, &score1, &score2); err != nil {
			return o.mapRepoError(err)
		}
		if err := o.participantRepo.MarkEliminated(ctx, exec, losers, round.RoundNumber); err != nil {
			return err
		}

		// Round completion is recomputed from match rows on every
		// submission; the last submission to complete the round advances
		// the tournament, all inside this transaction.
		matches, err := o.matchRepo.ListByRound(ctx, exec, round.ID)
		if err != nil {
			return err
		}
		round.Matches = matches
		if round.Complete() {
			finished, err := o.handleRoundCompletion(ctx, exec, t, round)
			if err != nil {
				return err
			}
			tournamentFinished = finished
		}

		updated, err := o.matchRepo.GetByID(ctx, exec, m.ID)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.broadcast(peek.TournamentID, realtime.EventMatchCompleted, result)
	if tournamentFinished {
		o.broadcast(peek.TournamentID, realtime.EventTournamentCompleted, nil)
	}
	return result, nil
}

// handleRoundCompletion marks the round completed, finishes the tournament if
// it is decided, and otherwise generates and persists the next round. Runs
// entirely inside the caller's transaction so a failure leaves the tournament
// consistent with "not yet advanced".
func (o *tournamentOrchestrator) handleRoundCompletion(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, round *models.Round) (bool, error) {
	engine, err := o.rules.Resolve(t.Format)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	if err := o.roundRepo.UpdateStatus(ctx, exec, round.ID, models.RoundCompleted, nil, &now); err != nil {
		return false, err
	}
	round.Status = models.RoundCompleted
	round.CompletedAt = &now

	rounds, err := o.loadRoundsWithMatches(ctx, exec, t.ID)
	if err != nil {
		return false, err
	}

	if engine.IsTournamentComplete(t, rounds) {
		t.WinnerIDs = engine.TournamentWinners(rounds)
		t.RunnerUpIDs = engine.TournamentRunnersUp(rounds)
		t.Status = models.TournamentCompleted
		t.RoundReady = false
		t.CompletedAt = &now
		if err := o.tournamentRepo.UpdateProgress(ctx, exec, t); err != nil {
			return false, err
		}
		o.logger.Info("tournament completed",
			slog.Int("tournament_id", t.ID),
			slog.Any("winners", t.WinnerIDs))
		return true, nil
	}

	// Re-seed the remaining field if the tournament asks for it; the set of
	// remaining participants never changes, only seed order.
	if t.ReseedEachRound {
		seeder, err := o.seeders.Resolve(t.SeedingMethod)
		if err != nil {
			return false, err
		}
		remaining, err := o.participantRepo.ListByTournament(ctx, exec, t.ID, true)
		if err != nil {
			return false, err
		}
		reseeded, err := seeder.ReseedParticipants(ctx, t, remaining, round.RoundNumber)
		if err != nil {
			return false, err
		}
		if err := o.participantRepo.UpdateSeeds(ctx, exec, reseeded); err != nil {
			return false, err
		}
	}

	all, err := o.participantRepo.ListByTournament(ctx, exec, t.ID, false)
	if err != nil {
		return false, err
	}
	next, err := engine.GenerateNextRound(ctx, t, round, all)
	if err != nil {
		return false, err
	}
	if len(next) == 0 {
		// A lone winner outside a final-tagged round. Should not occur once
		// byes are accounted for; finish rather than stall.
		o.logger.Warn("no next round generated for an undecided tournament, finishing",
			slog.Int("tournament_id", t.ID), slog.Int("round", round.RoundNumber))
		t.Status = models.TournamentCompleted
		t.RoundReady = false
		t.CompletedAt = &now
		return true, o.tournamentRepo.UpdateProgress(ctx, exec, t)
	}

	if err := o.persistRounds(ctx, exec, next); err != nil {
		return false, err
	}

	highest := t.CurrentRound
	for _, r := range next {
		if r.RoundNumber > highest {
			highest = r.RoundNumber
		}
	}
	t.CurrentRound = highest
	t.Status = models.TournamentRoundComplete
	t.RoundReady = true
	if err := o.tournamentRepo.UpdateProgress(ctx, exec, t); err != nil {
		return false, err
	}

	o.logger.Info("next round generated",
		slog.Int("tournament_id", t.ID),
		slog.Int("completed_round", round.RoundNumber),
		slog.Int("current_round", t.CurrentRound))
	return false, nil
}

func (o *tournamentOrchestrator) HandleParticipantDropout(ctx context.Context, tournamentID, participantID int) error {
	err := o.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := o.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return o.mapRepoError(err)
		}
		if t.Status == models.TournamentCompleted {
			return ErrTournamentAlreadyComplete
		}

		p, err := o.participantRepo.GetByID(ctx, exec, participantID)
		if err != nil {
			return o.mapRepoError(err)
		}
		if p.TournamentID != t.ID {
			return ErrParticipantNotFound
		}
		if p.Eliminated {
			return ErrParticipantEliminated
		}

		engine, err := o.rules.Resolve(t.Format)
		if err != nil {
			return err
		}
		rounds, err := o.loadRoundsWithMatches(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if err := engine.HandleParticipantDropout(ctx, t, rounds, int64(p.ID)); err != nil {
			return err
		}

		round := t.CurrentRound
		if round < 1 {
			round = 1
		}
		if err := o.participantRepo.MarkEliminated(ctx, exec, []int64{int64(p.ID)}, round); err != nil {
			return err
		}

		o.logger.Info("participant dropped out",
			slog.Int("tournament_id", t.ID),
			slog.Int("participant_id", p.ID),
			slog.Int("round", round))
		return nil
	})
	if err != nil {
		return err
	}

	o.broadcast(tournamentID, realtime.EventBracketUpdated, nil)
	return nil
}

func (o *tournamentOrchestrator) GetCurrentStandings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	if _, err := o.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, o.mapRepoError(err)
	}
	participants, err := o.participantRepo.ListByTournament(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, err
	}

	ordered := make([]*models.Participant, len(participants))
	copy(ordered, participants)

	// Active players first, then players that lasted longer, ties by seed.
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Eliminated != b.Eliminated {
			return !a.Eliminated
		}
		if a.Eliminated && b.Eliminated {
			ar, br := 0, 0
			if a.EliminatedInRound != nil {
				ar = *a.EliminatedInRound
			}
			if b.EliminatedInRound != nil {
				br = *b.EliminatedInRound
			}
			if ar != br {
				return ar > br
			}
		}
		return a.Seed < b.Seed
	})

	standings := make([]models.Standing, len(ordered))
	for i, p := range ordered {
		standings[i] = models.Standing{Rank: i + 1, Participant: *p}
	}
	return standings, nil
}

func (o *tournamentOrchestrator) GetUpcomingMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	if _, err := o.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, o.mapRepoError(err)
	}
	active, err := o.roundRepo.ListByStatus(ctx, nil, tournamentID, models.RoundActive)
	if err != nil {
		return nil, err
	}

	upcoming := make([]models.Match, 0)
	for _, r := range active {
		matches, err := o.matchRepo.ListByRound(ctx, nil, r.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.BothSidesSet() && !m.Completed {
				upcoming = append(upcoming, m)
			}
		}
	}
	return upcoming, nil
}

func (o *tournamentOrchestrator) GetBracketSnapshot(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := o.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, o.mapRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := o.participantRepo.ListByTournament(gCtx, nil, t.ID, false)
		if err != nil {
			return err
		}
		t.Participants = make([]models.Participant, len(participants))
		for i, p := range participants {
			t.Participants[i] = *p
		}
		return nil
	})

	g.Go(func() error {
		rounds, err := o.loadRoundsWithMatches(gCtx, nil, t.ID)
		if err != nil {
			return err
		}
		t.Rounds = make([]models.Round, len(rounds))
		for i, r := range rounds {
			t.Rounds[i] = *r
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

func (o *tournamentOrchestrator) loadRoundsWithMatches(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Round, error) {
	rounds, err := o.roundRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := o.matchRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, err
	}

	byRound := make(map[int][]models.Match, len(rounds))
	for _, m := range matches {
		byRound[m.RoundID] = append(byRound[m.RoundID], m)
	}
	for _, r := range rounds {
		r.Matches = byRound[r.ID]
	}
	return rounds, nil
}

func (o *tournamentOrchestrator) persistRounds(ctx context.Context, exec repositories.SQLExecutor, rounds []*models.Round) error {
	for _, r := range rounds {
		if err := o.roundRepo.Create(ctx, exec, r); err != nil {
			return err
		}
		for i := range r.Matches {
			r.Matches[i].RoundID = r.ID
			if err := o.matchRepo.Create(ctx, exec, &r.Matches[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *tournamentOrchestrator) broadcast(tournamentID int, eventType string, payload interface{}) {
	if o.notifier == nil {
		return
	}
	o.notifier.Broadcast(tournamentID, eventType, payload)
}

// mapRepoError translates repository sentinels into service-level ones so
// handlers map a single error family to HTTP statuses.
func (o *tournamentOrchestrator) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchAlreadyCompleted):
		return ErrMatchAlreadyCompleted
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	}
	return err
}
