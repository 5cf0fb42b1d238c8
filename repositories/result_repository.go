package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrResultNotFound = errors.New("match result not found")
	ErrResultConflict = errors.New("result for this identifier token already recorded")
)

type ResultRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament string, token string, result models.MatchResult) error
	ListByTournament(ctx context.Context, tournament string) ([]models.MatchResult, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournament string) error
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) Create(ctx context.Context, exec SQLExecutor, tournament, token string, result models.MatchResult) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_results
		    (tournament, token, epoch, stage, round, pairing, match, attempt, outcome, goals, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := executor.ExecContext(ctx, query,
		tournament, token,
		result.ID.Epoch, result.ID.Stage, result.ID.Round,
		result.ID.Pairing, result.ID.Match, result.ID.Attempt,
		string(result.Outcome), pq.Array(result.Goals), time.Now().UTC(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrResultConflict
		}
		return err
	}
	return nil
}

func (r *postgresResultRepository) ListByTournament(ctx context.Context, tournament string) ([]models.MatchResult, error) {
	query := `
		SELECT epoch, stage, round, pairing, match, attempt, outcome, goals
		FROM match_results
		WHERE tournament = $1
		ORDER BY recorded_at, id`

	rows, err := r.db.QueryContext(ctx, query, tournament)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		var (
			result  models.MatchResult
			outcome string
			goals   pq.Float64Array
		)
		err := rows.Scan(
			&result.ID.Epoch, &result.ID.Stage, &result.ID.Round,
			&result.ID.Pairing, &result.ID.Match, &result.ID.Attempt,
			&outcome, &goals,
		)
		if err != nil {
			return nil, err
		}
		result.Outcome = models.MatchOutcome(outcome)
		if len(goals) > 0 {
			result.Goals = []float64(goals)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *postgresResultRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournament string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM match_results WHERE tournament = $1`, tournament)
	return err
}
