package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
)

type ParticipantService interface {
	// Register enrolls a player into a tournament that has not generated its
	// bracket yet.
	Register(ctx context.Context, tournamentID, playerID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error)
	Withdraw(ctx context.Context, tournamentID, participantID, requesterID int) error
}

type participantService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	logger          *slog.Logger
}

func NewParticipantService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		logger:          logger,
	}
}

func (s *participantService) Register(ctx context.Context, tournamentID, playerID int) (*models.Participant, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if t.Status != models.TournamentCreated {
		return nil, ErrRegistrationClosed
	}

	if _, err := s.userRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	existing, err := s.participantRepo.ListByTournament(ctx, nil, t.ID, false)
	if err != nil {
		return nil, err
	}
	if len(existing) >= t.Capacity {
		return nil, ErrTournamentFull
	}

	p := &models.Participant{
		TournamentID: t.ID,
		PlayerID:     playerID,
	}
	if err := s.participantRepo.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, repositories.ErrParticipantConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrParticipantInvalidRefs):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.logger.Info("participant registered",
		slog.Int("tournament_id", t.ID),
		slog.Int("player_id", playerID),
		slog.Int("participant_id", p.ID))
	return p, nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID, false)
}

// Withdraw removes a registration before the bracket exists. Once the
// tournament has advanced, leaving is a dropout handled by the orchestrator.
func (s *participantService) Withdraw(ctx context.Context, tournamentID, participantID, requesterID int) error {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if t.Advanced() {
		return ErrRegistrationClosed
	}

	p, err := s.participantRepo.GetByID(ctx, nil, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if p.TournamentID != t.ID {
		return ErrParticipantNotFound
	}
	if p.PlayerID != requesterID && t.OrganizerID != requesterID {
		return ErrForbiddenOperation
	}

	if err := s.participantRepo.Delete(ctx, participantID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	s.logger.Info("participant withdrawn",
		slog.Int("tournament_id", t.ID),
		slog.Int("participant_id", participantID))
	return nil
}
