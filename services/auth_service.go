package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var ErrInvalidEmailFormat = errors.New("invalid email format")

type RegisterInput struct {
	Nickname string          `json:"nickname"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	// Login returns the user on a successful credential check. Token issuance
	// belongs to the HTTP layer.
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{userRepo: userRepo, logger: logger}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	role := input.Role
	if role == "" {
		role = models.RolePlayer
	}
	switch role {
	case models.RolePlayer, models.RoleOrganizer:
	default:
		return nil, ErrForbiddenOperation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		case errors.Is(err, repositories.ErrUserNicknameConflict):
			return nil, ErrUserNicknameConflict
		}
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int("user_id", u.ID), slog.String("role", string(u.Role)))
	return u, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// Indistinguishable from a bad password on purpose.
			return nil, ErrAuthInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthInvalidCredentials
	}
	return u, nil
}

func (s *authService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
