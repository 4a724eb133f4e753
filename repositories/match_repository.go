package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound         = errors.New("match not found")
	ErrMatchAlreadyCompleted = errors.New("match result already recorded")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error)
	// Complete records the result exactly once; completing an already
	// completed match returns ErrMatchAlreadyCompleted.
	Complete(ctx context.Context, exec SQLExecutor, id int, winners, losers []int64, score1, score2 *int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round_id, display_id, position,
	team1_participant_ids, team2_participant_ids, team1_seed, team2_seed,
	is_bye, completed, winner_participant_ids, loser_participant_ids,
	score1, score2, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, round_id, display_id, position,
			team1_participant_ids, team2_participant_ids, team1_seed, team2_seed,
			is_bye, completed, winner_participant_ids, loser_participant_ids,
			score1, score2
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.RoundID, m.DisplayID, m.Position,
		pq.Array(m.Team1), pq.Array(m.Team2), m.Team1Seed, m.Team2Seed,
		m.IsBye, m.Completed, pq.Array(m.Winners), pq.Array(m.Losers),
		m.Score1, m.Score2,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match %s: %w", m.DisplayID, err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.TournamentID, &m.RoundID, &m.DisplayID, &m.Position,
		pq.Array(&m.Team1), pq.Array(&m.Team2), &m.Team1Seed, &m.Team2Seed,
		&m.IsBye, &m.Completed, pq.Array(&m.Winners), pq.Array(&m.Losers),
		&m.Score1, &m.Score2, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE round_id = $1 ORDER BY position ASC`
	return r.queryMatches(ctx, exec, query, roundID)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round_id ASC, position ASC`
	return r.queryMatches(ctx, exec, query, tournamentID)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.RoundID, &m.DisplayID, &m.Position,
			pq.Array(&m.Team1), pq.Array(&m.Team2), &m.Team1Seed, &m.Team2Seed,
			&m.IsBye, &m.Completed, pq.Array(&m.Winners), pq.Array(&m.Losers),
			&m.Score1, &m.Score2, &m.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id int, winners, losers []int64, score1, score2 *int) error {
	query := `
		UPDATE matches
		SET completed = TRUE,
		    winner_participant_ids = $1, loser_participant_ids = $2,
		    score1 = $3, score2 = $4
		WHERE id = $5 AND completed = FALSE`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		pq.Array(winners), pq.Array(losers), score1, score2, id)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish "missing" from "already completed" for the caller.
		if _, getErr := r.GetByID(ctx, exec, id); getErr != nil {
			return getErr
		}
		return ErrMatchAlreadyCompleted
	}
	return nil
}
