package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bracketforge/tournament-engine/models"
	"github.com/bracketforge/tournament-engine/seeding"
)

// PostgresRatingRepository implements seeding.RatingSource over the
// player_ratings table. The table is maintained by the external rating system;
// this repository only reads it.
type PostgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) *PostgresRatingRepository {
	return &PostgresRatingRepository{db: db}
}

func (r *PostgresRatingRepository) Rating(ctx context.Context, playerID int, gameType models.GameType) (int, error) {
	query := `SELECT rating FROM player_ratings WHERE player_id = $1 AND game_type = $2`

	var rating int
	err := r.db.QueryRowContext(ctx, query, playerID, gameType).Scan(&rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, seeding.ErrRatingNotFound
		}
		return 0, fmt.Errorf("failed to query rating for player %d (%s): %w", playerID, gameType, err)
	}
	return rating, nil
}
