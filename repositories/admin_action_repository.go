package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrActionPositionConflict = errors.New("admin action position already occupied")

// AdminActionRepository хранит упорядоченный список закодированных
// административных действий турнира. Порядок значим: он определяет эпохи.
type AdminActionRepository interface {
	Append(ctx context.Context, exec SQLExecutor, tournament string, action models.AdminAction) (position int, err error)
	ListByTournament(ctx context.Context, tournament string) ([]models.AdminAction, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournament string) error
}

type postgresAdminActionRepository struct {
	db *sql.DB
}

func NewPostgresAdminActionRepository(db *sql.DB) AdminActionRepository {
	return &postgresAdminActionRepository{db: db}
}

func (r *postgresAdminActionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAdminActionRepository) Append(ctx context.Context, exec SQLExecutor, tournament string, action models.AdminAction) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO admin_actions (tournament, position, token)
		VALUES ($1, (SELECT COALESCE(MAX(position), -1) + 1 FROM admin_actions WHERE tournament = $1), $2)
		RETURNING position`

	var position int
	if err := executor.QueryRowContext(ctx, query, tournament, action.Encode()).Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}

func (r *postgresAdminActionRepository) ListByTournament(ctx context.Context, tournament string) ([]models.AdminAction, error) {
	query := `SELECT token FROM admin_actions WHERE tournament = $1 ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, tournament)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []models.AdminAction
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		action, err := models.DecodeAdminAction(token)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func (r *postgresAdminActionRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournament string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM admin_actions WHERE tournament = $1`, tournament)
	return err
}
