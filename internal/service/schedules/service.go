package schedules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	scheduleRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/schedule"
	"github.com/m04kA/SMC-CounselingService/internal/service/schedules/models"
)

// Service сервис для работы с расписаниями консультаций
type Service struct {
	scheduleRepo ScheduleRepository
	txManager    TransactionManager
	logger       Logger
}

// NewService создает новый экземпляр сервиса расписаний
func NewService(scheduleRepo ScheduleRepository, txManager TransactionManager, logger Logger) *Service {
	return &Service{
		scheduleRepo: scheduleRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// GetByID получает сессию по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*models.ScheduleResponse, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrScheduleNotFound) {
			s.logger.Warn("GetByID: schedule id=%d not found", id)
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("GetByID: repository error for schedule id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainSchedule(schedule), nil
}

// List получает сессии с фильтрацией по консультанту, клиенту, маппингу, периоду и статусу.
// Отмененные сессии возвращаются только при IncludeCancelled.
func (s *Service) List(ctx context.Context, req *models.ListSchedulesRequest) (*models.ScheduleListResponse, error) {
	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("List: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		s.logger.Warn("List: end date is before start date")
		return nil, fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}

	schedules, err := s.scheduleRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error: %v", err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: fetched %d schedules", len(schedules))
	return models.FromDomainScheduleList(schedules), nil
}

// ChangeStatus меняет статус сессии.
// Отмена освобождает время для новых сессий, использованная сессия маппинга не возвращается.
func (s *Service) ChangeStatus(ctx context.Context, id int64, req *models.ChangeStatusRequest) (*models.ScheduleResponse, error) {
	s.logger.Info("ChangeStatus: schedule id=%d to status=%s", id, req.Status)

	target, err := domain.ParseScheduleStatus(req.Status)
	if err != nil {
		s.logger.Warn("ChangeStatus: invalid status=%s for schedule id=%d", req.Status, id)
		return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}

	var reason *string
	if r := strings.TrimSpace(req.Reason); r != "" && target == domain.ScheduleCancelled {
		if len(r) > domain.MaxReasonLength {
			return nil, fmt.Errorf("%w: reason is too long", ErrInvalidInput)
		}
		reason = &r
	}

	var result *domain.Schedule

	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		current, err := s.scheduleRepo.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, scheduleRepo.ErrScheduleNotFound) {
				s.logger.Warn("ChangeStatus: schedule id=%d not found", id)
				return ErrScheduleNotFound
			}
			s.logger.Error("ChangeStatus: failed to get schedule id=%d: %v", id, err)
			return fmt.Errorf("%w: ChangeStatus - get schedule: %w", ErrInternal, err)
		}

		next, err := current.Status.TransitionTo(target)
		if err != nil {
			s.logger.Warn("ChangeStatus: schedule id=%d cannot move %s -> %s", id, current.Status, target)
			return err
		}

		updated, err := s.scheduleRepo.UpdateStatus(txCtx, id, current.Status, next, reason)
		if err != nil {
			if errors.Is(err, scheduleRepo.ErrConcurrentUpdate) {
				s.logger.Warn("ChangeStatus: schedule id=%d was modified concurrently", id)
				return ErrConcurrentUpdate
			}
			s.logger.Error("ChangeStatus: failed to update schedule id=%d: %v", id, err)
			return fmt.Errorf("%w: ChangeStatus - update schedule: %w", ErrInternal, err)
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ChangeStatus: schedule id=%d is now %s", id, result.Status)
	return models.FromDomainSchedule(result), nil
}
