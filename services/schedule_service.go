package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/specfile"
	"github.com/Dosada05/tournament-engine/storage"
)

// NextMatchesResponse — следующая партия матчей вместе с информационным
// временем старта. Пустой список матчей означает завершенный турнир.
type NextMatchesResponse struct {
	Matches           []models.MatchSetup `json:"matches"`
	StartsAt          *time.Time          `json:"starts_at,omitempty"`
	SecondsUntilStart int64               `json:"seconds_until_start"`
	Done              bool                `json:"done"`
}

// ScheduleService отвечает на запросы расписания и принимает результаты
// матчей. Все ответы выводятся пересчетом от сохраненного состояния, поэтому
// порядок поступления результатов не влияет на итог.
type ScheduleService interface {
	NextMatches(ctx context.Context, tournament string) (*NextMatchesResponse, error)
	CurrentStandings(ctx context.Context, tournament string) (models.Ranking, error)
	StandingsHistory(ctx context.Context, tournament string) ([]models.Ranking, error)
	SubmitResult(ctx context.Context, tournament string, result models.MatchResult) error
}

type scheduleService struct {
	engine         *brackets.Engine
	tournamentRepo repositories.TournamentRepository
	seedingRepo    repositories.SeedingRepository
	actionRepo     repositories.AdminActionRepository
	resultRepo     repositories.ResultRepository
	hub            *brackets.Hub
	uploader       storage.FileUploader // nil, если архивирование не настроено
	logger         *slog.Logger
}

func NewScheduleService(
	engine *brackets.Engine,
	tournamentRepo repositories.TournamentRepository,
	seedingRepo repositories.SeedingRepository,
	actionRepo repositories.AdminActionRepository,
	resultRepo repositories.ResultRepository,
	hub *brackets.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		engine:         engine,
		tournamentRepo: tournamentRepo,
		seedingRepo:    seedingRepo,
		actionRepo:     actionRepo,
		resultRepo:     resultRepo,
		hub:            hub,
		uploader:       uploader,
		logger:         logger,
	}
}

// tournamentInputs — все сохраненное состояние, нужное движку для пересчета.
type tournamentInputs struct {
	structure *models.TournamentStructure
	seeding   models.Seeding
	actions   []models.AdminAction
	results   []models.MatchResult
}

func (s *scheduleService) loadInputs(ctx context.Context, tournament string) (*tournamentInputs, error) {
	in := &tournamentInputs{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		record, err := s.tournamentRepo.GetByName(gctx, tournament)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrNotFound
			}
			return err
		}
		structure, err := specfile.LoadBytes([]byte(record.Document))
		if err != nil {
			return fmt.Errorf("stored document for %q no longer parses: %w", tournament, err)
		}
		in.structure = structure
		return nil
	})
	g.Go(func() error {
		seeding, err := s.seedingRepo.GetByTournament(gctx, tournament)
		if err != nil {
			if errors.Is(err, repositories.ErrSeedingNotFound) {
				return ErrSeedingRequired
			}
			return err
		}
		in.seeding = seeding
		return nil
	})
	g.Go(func() error {
		actions, err := s.actionRepo.ListByTournament(gctx, tournament)
		if err != nil {
			return err
		}
		in.actions = actions
		return nil
	})
	g.Go(func() error {
		results, err := s.resultRepo.ListByTournament(gctx, tournament)
		if err != nil {
			return err
		}
		in.results = results
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *scheduleService) NextMatches(ctx context.Context, tournament string) (*NextMatchesResponse, error) {
	in, err := s.loadInputs(ctx, tournament)
	if err != nil {
		return nil, err
	}
	schedule, err := s.engine.NextMatches(ctx, in.structure, in.seeding, in.actions, in.results)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	resp := &NextMatchesResponse{
		Matches:  schedule.Matches,
		StartsAt: schedule.StartsAt,
		Done:     len(schedule.Matches) == 0,
	}
	if schedule.StartsAt != nil {
		if until := time.Until(*schedule.StartsAt); until > 0 {
			resp.SecondsUntilStart = int64(until.Seconds())
		}
	}
	return resp, nil
}

func (s *scheduleService) CurrentStandings(ctx context.Context, tournament string) (models.Ranking, error) {
	in, err := s.loadInputs(ctx, tournament)
	if err != nil {
		return nil, err
	}
	ranking, err := s.engine.CurrentStandings(ctx, in.structure, in.seeding, in.actions, in.results)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return ranking, nil
}

func (s *scheduleService) StandingsHistory(ctx context.Context, tournament string) ([]models.Ranking, error) {
	in, err := s.loadInputs(ctx, tournament)
	if err != nil {
		return nil, err
	}
	history, err := s.engine.StandingsHistory(ctx, in.structure, in.seeding, in.actions, in.results)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return history, nil
}

func (s *scheduleService) SubmitResult(ctx context.Context, tournament string, result models.MatchResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	in, err := s.loadInputs(ctx, tournament)
	if err != nil {
		return err
	}

	token, err := result.ID.Encode(in.structure.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := s.resultRepo.Create(ctx, nil, tournament, token, result); err != nil {
		if errors.Is(err, repositories.ErrResultConflict) {
			return ErrResultAlreadyKnown
		}
		return fmt.Errorf("failed to store result %s: %w", token, err)
	}
	in.results = append(in.results, result)

	standings, err := s.engine.CurrentStandings(ctx, in.structure, in.seeding, in.actions, in.results)
	if err != nil {
		// Результат уже зафиксирован; пересчет с ним не должен падать,
		// кроме случая устаревшей эпохи — тогда он просто игнорируется.
		s.logger.Warn("standings recompute after result failed",
			slog.String("tournament", tournament),
			slog.String("token", token),
			slog.Any("error", err))
		return nil
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(tournament, brackets.HubMessage{
			Type:    "STANDINGS_UPDATED",
			Payload: standings,
			Room:    tournament,
		})
	}

	schedule, err := s.engine.NextMatches(ctx, in.structure, in.seeding, in.actions, in.results)
	if err != nil {
		return nil
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(tournament, brackets.HubMessage{
			Type:    "MATCHES_UPDATED",
			Payload: schedule,
			Room:    tournament,
		})
	}
	if len(schedule.Matches) == 0 {
		s.archiveFinalStandings(ctx, tournament, standings)
	}
	return nil
}

// archiveFinalStandings выгружает итоговую таблицу завершенного турнира во
// внешнее хранилище. Неудача не влияет на принятие результата.
func (s *scheduleService) archiveFinalStandings(ctx context.Context, tournament string, standings models.Ranking) {
	if s.uploader == nil {
		return
	}
	payload, err := json.MarshalIndent(standings, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode final standings",
			slog.String("tournament", tournament),
			slog.Any("error", err))
		return
	}
	key := storage.FinalStandingsKey(tournament)
	uploaded, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("failed to archive final standings",
			slog.String("tournament", tournament),
			slog.Any("error", err))
		return
	}
	s.logger.Info("final standings archived",
		slog.String("tournament", tournament),
		slog.String("location", uploaded.Location))
}
