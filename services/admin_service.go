package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/specfile"
	"github.com/Dosada05/tournament-engine/storage"
)

// AdminService применяет административные правки к идущему турниру.
// Правки не редактируют сохраненный документ: они накапливаются в
// упорядоченном журнале и накладываются при каждом пересчете.
type AdminService interface {
	AppendAction(ctx context.Context, tournament string, action models.AdminAction) (int, error)
	ListActions(ctx context.Context, tournament string) ([]models.AdminAction, error)
	DeleteTournament(ctx context.Context, tournament string) error
}

type adminService struct {
	tournamentRepo repositories.TournamentRepository
	seedingRepo    repositories.SeedingRepository
	actionRepo     repositories.AdminActionRepository
	resultRepo     repositories.ResultRepository
	uploader       storage.FileUploader // nil, если архивирование не настроено
}

func NewAdminService(
	tournamentRepo repositories.TournamentRepository,
	seedingRepo repositories.SeedingRepository,
	actionRepo repositories.AdminActionRepository,
	resultRepo repositories.ResultRepository,
	uploader storage.FileUploader,
) AdminService {
	return &adminService{
		tournamentRepo: tournamentRepo,
		seedingRepo:    seedingRepo,
		actionRepo:     actionRepo,
		resultRepo:     resultRepo,
		uploader:       uploader,
	}
}

func (s *adminService) AppendAction(ctx context.Context, tournament string, action models.AdminAction) (int, error) {
	record, err := s.tournamentRepo.GetByName(ctx, tournament)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	// Кодек — единственная проверка формы действия: что кодируется,
	// то и воспроизводимо.
	token := action.Encode()
	if _, err := models.DecodeAdminAction(token); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	// Действие с вылетом за пределы структуры не ошибка (оно просто не
	// возымеет эффекта), но действие, ломающее структуру, отклоняется.
	structure, err := specfile.LoadBytes([]byte(record.Document))
	if err != nil {
		return 0, fmt.Errorf("stored document for %q no longer parses: %w", tournament, err)
	}
	existing, err := s.actionRepo.ListByTournament(ctx, tournament)
	if err != nil {
		return 0, err
	}
	all := append(existing, action)
	effective := models.ApplyActions(structure, all)
	if err := effective.Validate(); err != nil {
		return 0, fmt.Errorf("%w: action would break structure: %v", ErrValidationFailed, err)
	}
	if err := models.ValidateActions(effective, all); err != nil {
		return 0, fmt.Errorf("%w: action would break structure: %v", ErrValidationFailed, err)
	}

	position, err := s.actionRepo.Append(ctx, nil, tournament, action)
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (s *adminService) ListActions(ctx context.Context, tournament string) ([]models.AdminAction, error) {
	return s.actionRepo.ListByTournament(ctx, tournament)
}

func (s *adminService) DeleteTournament(ctx context.Context, tournament string) error {
	if err := s.resultRepo.DeleteByTournament(ctx, nil, tournament); err != nil {
		return err
	}
	if err := s.actionRepo.DeleteByTournament(ctx, nil, tournament); err != nil {
		return err
	}
	if err := s.seedingRepo.DeleteByTournament(ctx, nil, tournament); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrNotFound
		}
		return err
	}
	if s.uploader != nil {
		// Архив не обязан существовать, неудача не блокирует удаление.
		if err := s.uploader.Delete(ctx, storage.FinalStandingsKey(tournament)); err != nil {
			log.Printf("failed to delete archived standings for %s: %v", tournament, err)
		}
	}
	return nil
}
