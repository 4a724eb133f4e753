package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bracketforge/tournament-engine/models"
)

var ErrRoundNotFound = errors.New("round not found")

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	// ListByTournament returns rounds ordered by round number. Matches are
	// not attached; callers join via MatchRepository.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error)
	ListByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.RoundStatus) ([]*models.Round, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus, startedAt, completedAt *time.Time) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	query := `
		INSERT INTO rounds (tournament_id, round_number, segment, name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		round.TournamentID, round.RoundNumber, round.Segment, round.Name, round.Status,
	).Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create round %d for tournament %d: %w",
			round.RoundNumber, round.TournamentID, err)
	}
	return nil
}

const roundColumns = `id, tournament_id, round_number, segment, name, status, started_at, completed_at, created_at`

func (r *postgresRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`

	round := &models.Round{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&round.ID, &round.TournamentID, &round.RoundNumber, &round.Segment, &round.Name,
		&round.Status, &round.StartedAt, &round.CompletedAt, &round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round %d: %w", id, err)
	}
	return round, nil
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 ORDER BY round_number ASC, id ASC`
	return r.queryRounds(ctx, exec, query, tournamentID)
}

func (r *postgresRoundRepository) ListByStatus(ctx context.Context, exec SQLExecutor, tournamentID int, status models.RoundStatus) ([]*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 AND status = $2 ORDER BY round_number ASC, id ASC`
	return r.queryRounds(ctx, exec, query, tournamentID, status)
}

func (r *postgresRoundRepository) queryRounds(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Round, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		var round models.Round
		if scanErr := rows.Scan(
			&round.ID, &round.TournamentID, &round.RoundNumber, &round.Segment, &round.Name,
			&round.Status, &round.StartedAt, &round.CompletedAt, &round.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", scanErr)
		}
		rounds = append(rounds, &round)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during round rows iteration: %w", err)
	}
	return rounds, nil
}

func (r *postgresRoundRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus, startedAt, completedAt *time.Time) error {
	query := `
		UPDATE rounds
		SET status = $1,
		    started_at = COALESCE($2, started_at),
		    completed_at = COALESCE($3, completed_at)
		WHERE id = $4`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, startedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update status of round %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}
