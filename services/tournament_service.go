package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/specfile"
)

// TournamentService управляет сохраненными турнирами: принимает
// декларативный документ, проверяет его и фиксирует вместе с исходным посевом.
type TournamentService interface {
	Create(ctx context.Context, document string, seeding []string) (*models.TournamentStructure, error)
	GetStructure(ctx context.Context, name string) (*models.TournamentStructure, error)
	ListNames(ctx context.Context) ([]string, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	seedingRepo    repositories.SeedingRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	seedingRepo repositories.SeedingRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		seedingRepo:    seedingRepo,
	}
}

func (s *tournamentService) Create(ctx context.Context, document string, seeding []string) (*models.TournamentStructure, error) {
	if document == "" {
		return nil, ErrDocumentRequired
	}
	if len(seeding) == 0 {
		return nil, ErrSeedingRequired
	}

	structure, err := specfile.LoadBytes([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	players := make(models.Seeding, len(seeding))
	for i, p := range seeding {
		players[i] = models.Player(p)
	}
	if err := players.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	record := &repositories.TournamentRecord{Name: structure.Name, Document: document}
	if err := s.tournamentRepo.Create(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentConflict
		}
		return nil, fmt.Errorf("failed to store tournament %q: %w", structure.Name, err)
	}
	if err := s.seedingRepo.Put(ctx, nil, structure.Name, players); err != nil {
		return nil, fmt.Errorf("failed to store seeding for %q: %w", structure.Name, err)
	}
	return structure, nil
}

func (s *tournamentService) GetStructure(ctx context.Context, name string) (*models.TournamentStructure, error) {
	record, err := s.tournamentRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	structure, err := specfile.LoadBytes([]byte(record.Document))
	if err != nil {
		// Документ прошел валидацию при создании; порча хранилища —
		// не пользовательская ошибка.
		return nil, fmt.Errorf("stored document for %q no longer parses: %w", name, err)
	}
	return structure, nil
}

func (s *tournamentService) ListNames(ctx context.Context) ([]string, error) {
	return s.tournamentRepo.ListNames(ctx)
}
