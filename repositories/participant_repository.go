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
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantConflict    = errors.New("player is already registered for this tournament")
	ErrParticipantInvalidRefs = errors.New("invalid tournament or player reference")
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	// ListByTournament returns participants ordered by seed then id;
	// activeOnly filters out eliminated participants.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, activeOnly bool) ([]*models.Participant, error)
	UpdateSeeds(ctx context.Context, exec SQLExecutor, participants []*models.Participant) error
	MarkEliminated(ctx context.Context, exec SQLExecutor, participantIDs []int64, round int) error
	Delete(ctx context.Context, id int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, player_id, seed, eliminated)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.TournamentID, p.PlayerID, p.Seed, p.Eliminated,
	).Scan(&p.ID, &p.CreatedAt)

	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, player_id, seed, eliminated, eliminated_in_round, created_at
		FROM participants
		WHERE id = $1`

	p := &models.Participant{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.PlayerID, &p.Seed, &p.Eliminated, &p.EliminatedInRound, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, activeOnly bool) ([]*models.Participant, error) {
	query := `
		SELECT id, tournament_id, player_id, seed, eliminated, eliminated_in_round, created_at
		FROM participants
		WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND eliminated = FALSE`
	}
	query += ` ORDER BY seed ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.PlayerID, &p.Seed, &p.Eliminated, &p.EliminatedInRound, &p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) UpdateSeeds(ctx context.Context, exec SQLExecutor, participants []*models.Participant) error {
	executor := r.getExecutor(exec)
	query := `UPDATE participants SET seed = $1 WHERE id = $2`
	for _, p := range participants {
		result, err := executor.ExecContext(ctx, query, p.Seed, p.ID)
		if err != nil {
			return fmt.Errorf("failed to update seed for participant %d: %w", p.ID, err)
		}
		if err := checkAffectedRows(result, ErrParticipantNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresParticipantRepository) MarkEliminated(ctx context.Context, exec SQLExecutor, participantIDs []int64, round int) error {
	if len(participantIDs) == 0 {
		return nil
	}
	query := `
		UPDATE participants
		SET eliminated = TRUE, eliminated_in_round = $1
		WHERE id = ANY($2) AND eliminated = FALSE`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, round, pq.Array(participantIDs))
	if err != nil {
		return fmt.Errorf("failed to mark participants eliminated in round %d: %w", round, err)
	}
	return nil
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM participants WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "participants_tournament_player_key":
			return ErrParticipantConflict
		case "participants_tournament_id_fkey", "participants_player_id_fkey":
			return ErrParticipantInvalidRefs
		}
	}
	return err
}
