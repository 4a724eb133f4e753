package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"time"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
	"github.com/bracketforge/tournament-engine/storage"
)

// CreateTournamentInput carries the organizer-supplied configuration. Seeding
// method and format are fixed once the bracket is generated.
type CreateTournamentInput struct {
	Name            string                  `json:"name"`
	Format          models.TournamentFormat `json:"format"`
	SeedingMethod   models.SeedingMethod    `json:"seeding_method"`
	GameType        models.GameType         `json:"game_type"`
	Capacity        int                     `json:"capacity"`
	ReseedEachRound bool                    `json:"reseed_each_round"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UploadLogo(ctx context.Context, tournamentID, requesterID int, filename, contentType string, file io.Reader) (*models.Tournament, error)
	Delete(ctx context.Context, tournamentID, requesterID int) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(input); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:            input.Name,
		Format:          input.Format,
		SeedingMethod:   input.SeedingMethod,
		GameType:        input.GameType,
		OrganizerID:     organizerID,
		Capacity:        input.Capacity,
		ReseedEachRound: input.ReseedEachRound,
		Status:          models.TournamentCreated,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int("organizer_id", organizerID),
		slog.String("format", string(t.Format)))
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.attachLogoURL(t)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.attachLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, tournamentID, requesterID int, filename, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrLogoStorageDisabled
	}

	t, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.OrganizerID != requesterID {
		return nil, ErrForbiddenOperation
	}

	ext := path.Ext(filename)
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	key := fmt.Sprintf("tournaments/%d/logo-%d%s", t.ID, time.Now().UTC().Unix(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, t.ID, &result.Key); err != nil {
		return nil, err
	}

	// Best effort cleanup of the replaced object.
	if t.LogoKey != nil && *t.LogoKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *t.LogoKey); delErr != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.Int("tournament_id", t.ID),
				slog.String("key", *t.LogoKey),
				slog.Any("error", delErr))
		}
	}

	t.LogoKey = &result.Key
	s.attachLogoURL(t)
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, tournamentID, requesterID int) error {
	t, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.OrganizerID != requesterID {
		return ErrForbiddenOperation
	}
	if err := s.tournamentRepo.Delete(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	s.logger.Info("tournament deleted", slog.Int("tournament_id", tournamentID))
	return nil
}

func (s *tournamentService) attachLogoURL(t *models.Tournament) {
	if s.uploader == nil || t.LogoKey == nil {
		return
	}
	if u := s.uploader.GetPublicURL(*t.LogoKey); u != "" {
		t.LogoURL = &u
	}
}

func validateTournamentInput(input CreateTournamentInput) error {
	if input.Name == "" {
		return ErrTournamentNameRequired
	}
	switch input.Format {
	case models.FormatSingleElimination:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, input.Format)
	}
	switch input.SeedingMethod {
	case models.SeedingRating, models.SeedingRandom:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSeedingMethod, input.SeedingMethod)
	}
	switch input.GameType {
	case models.GameRankedSingles, models.GameRankedDoubles, models.GameNormalSingles, models.GameNormalDoubles:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidGameType, input.GameType)
	}
	if input.Capacity < models.MinParticipants || input.Capacity > models.MaxParticipants {
		return fmt.Errorf("%w: got %d, supported %d..%d",
			ErrInvalidCapacity, input.Capacity, models.MinParticipants, models.MaxParticipants)
	}
	return nil
}
