package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrSeedingNotFound = errors.New("seeding not found")

// SeedingRepository хранит исходный посев турнира в закодированном виде.
// Посевы последующих стадий не сохраняются: они выводятся из ранжирований.
type SeedingRepository interface {
	Put(ctx context.Context, exec SQLExecutor, tournament string, seeding models.Seeding) error
	GetByTournament(ctx context.Context, tournament string) (models.Seeding, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournament string) error
}

type postgresSeedingRepository struct {
	db *sql.DB
}

func NewPostgresSeedingRepository(db *sql.DB) SeedingRepository {
	return &postgresSeedingRepository{db: db}
}

func (r *postgresSeedingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSeedingRepository) Put(ctx context.Context, exec SQLExecutor, tournament string, seeding models.Seeding) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO seedings (tournament, token)
		VALUES ($1, $2)
		ON CONFLICT (tournament) DO UPDATE SET token = EXCLUDED.token`

	_, err := executor.ExecContext(ctx, query, tournament, seeding.Encode())
	return err
}

func (r *postgresSeedingRepository) GetByTournament(ctx context.Context, tournament string) (models.Seeding, error) {
	query := `SELECT token FROM seedings WHERE tournament = $1`

	var token string
	err := r.db.QueryRowContext(ctx, query, tournament).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeedingNotFound
		}
		return nil, err
	}
	return models.DecodeSeeding(token)
}

func (r *postgresSeedingRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournament string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM seedings WHERE tournament = $1`, tournament)
	return err
}
