package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
)

// TournamentRecord — сохраненный турнир: внутреннее имя и исходный
// декларативный документ. Эффективная структура всегда строится заново из
// документа и списка административных действий.
type TournamentRecord struct {
	ID        int
	Name      string
	Document  string
	CreatedAt time.Time
}

type TournamentRepository interface {
	Create(ctx context.Context, record *TournamentRecord) error
	GetByName(ctx context.Context, name string) (*TournamentRecord, error)
	ListNames(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, record *TournamentRecord) error {
	query := `INSERT INTO tournaments (name, document, created_at) VALUES ($1, $2, $3) RETURNING id`
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, query, record.Name, record.Document, record.CreatedAt).Scan(&record.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTournamentNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) GetByName(ctx context.Context, name string) (*TournamentRecord, error) {
	query := `SELECT id, name, document, created_at FROM tournaments WHERE name = $1`

	var record TournamentRecord
	err := r.db.QueryRowContext(ctx, query, name).Scan(&record.ID, &record.Name, &record.Document, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *postgresTournamentRepository) ListNames(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM tournaments ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE name = $1`, name)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
