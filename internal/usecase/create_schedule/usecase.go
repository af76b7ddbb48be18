package create_schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
)

// UseCase use case для создания сессии консультации
type UseCase struct {
	scheduleRepo  ScheduleRepository
	mappingRepo   MappingRepository
	extensionRepo ExtensionRepository
	txManager     TransactionManager
	metrics       Metrics
	timeProvider  TimeProvider
	logger        Logger
	breakBuffer   int
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	scheduleRepo ScheduleRepository,
	mappingRepo MappingRepository,
	extensionRepo ExtensionRepository,
	txManager TransactionManager,
	metrics Metrics,
	breakBufferMinutes int,
	logger Logger,
) *UseCase {
	return &UseCase{
		scheduleRepo:  scheduleRepo,
		mappingRepo:   mappingRepo,
		extensionRepo: extensionRepo,
		txManager:     txManager,
		metrics:       metrics,
		timeProvider:  &RealTimeProvider{},
		logger:        logger,
		breakBuffer:   breakBufferMinutes,
	}
}

// Execute выполняет use case создания сессии.
// Проверка конфликтов и списание сессии выполняются в одной сериализуемой транзакции.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateSchedule: mapping=%d, date=%s, time=%s, duration=%d",
		req.MappingID, req.Date.Format(domain.DateFormat), req.StartTime, req.DurationMinutes)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateSchedule: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()
	if err := validateScheduleTime(req.Date, req.StartTime, now); err != nil {
		uc.logger.Warn("CreateSchedule: schedule time validation failed: %v", err)
		return nil, err
	}

	// 3. Вычисляем время окончания
	endTime, err := domain.SessionEnd(req.StartTime, req.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid startTime: %v", ErrInvalidInput, err)
	}

	var (
		result  *domain.Schedule
		mapping *domain.Mapping
		before  domain.MappingStatus
	)

	// 4. Выполняем операции с БД в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 4.1. Маппинг с блокировкой (FOR UPDATE)
		current, err := uc.mappingRepo.GetByID(txCtx, req.MappingID)
		if err != nil {
			if errors.Is(err, mappingRepo.ErrMappingNotFound) {
				uc.logger.Warn("CreateSchedule: mapping id=%d not found", req.MappingID)
				return ErrMappingNotFound
			}
			uc.logger.Error("CreateSchedule: failed to get mapping id=%d: %v", req.MappingID, err)
			return fmt.Errorf("%w: failed to get mapping: %w", ErrInternal, err)
		}
		before = current.Status

		// 4.2. Маппинг должен быть ACTIVE независимо от остатка сессий
		if !current.IsUsable() {
			uc.logger.Warn("CreateSchedule: mapping id=%d is not usable, status=%s", current.ID, current.Status)
			return ErrMappingNotUsable
		}
		if current.RemainingSessions <= 0 {
			uc.logger.Warn("CreateSchedule: mapping id=%d has no remaining sessions", current.ID)
			return ErrNoRemainingSessions
		}

		// 4.3. Все сессии консультанта на эту дату с блокировкой (FOR UPDATE)
		filter := domain.SchedulesFilter{
			ConsultantID: &current.ConsultantID,
			StartDate:    &req.Date,
			EndDate:      &req.Date,
		}

		existing, err := uc.scheduleRepo.List(txCtx, filter)
		if err != nil {
			uc.logger.Error("CreateSchedule: failed to get schedules: %v", err)
			return fmt.Errorf("%w: failed to get schedules: %w", ErrInternal, err)
		}

		// 4.4. Проверяем пересечения и буфер между сессиями
		conflict, ok := domain.FindConflict(existing, current.ConsultantID, req.Date, req.StartTime, endTime, uc.breakBuffer)
		if !ok {
			uc.logger.Warn("CreateSchedule: malformed interval %s-%s", req.StartTime, endTime)
			return fmt.Errorf("%w: invalid session interval", ErrInvalidInput)
		}
		if conflict != nil {
			uc.metrics.ScheduleConflict()
			uc.logger.Warn("CreateSchedule: %s-%s conflicts with schedule id=%d (%s-%s), buffer=%d",
				req.StartTime, endTime, conflict.ID, conflict.StartTime, conflict.EndTime, uc.breakBuffer)
			return ErrTimeConflict
		}

		// 4.5. Создаем сессию
		schedule := &domain.Schedule{
			MappingID:    current.ID,
			ConsultantID: current.ConsultantID,
			ClientID:     current.ClientID,
			Date:         domain.DateOnly(req.Date),
			StartTime:    req.StartTime,
			EndTime:      endTime,
			Status:       domain.ScheduleScheduled,
			Title:        strings.TrimSpace(req.Title),
			Description:  req.Description,
		}

		created, err := uc.scheduleRepo.Create(txCtx, schedule)
		if err != nil {
			uc.logger.Error("CreateSchedule: failed to create schedule: %v", err)
			return fmt.Errorf("%w: failed to create schedule: %w", ErrInternal, err)
		}

		// 4.6. Списываем сессию
		next, err := current.UseSession()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMappingNotUsable, err)
		}

		// 4.7. Пакет исчерпан и продлений нет: маппинг уходит в INACTIVE
		if next.RemainingSessions == 0 {
			hasOpen, err := uc.extensionRepo.HasOpenRequest(txCtx, current.ID)
			if err != nil {
				uc.logger.Error("CreateSchedule: failed to check extension requests for mapping id=%d: %v", current.ID, err)
				return fmt.Errorf("%w: failed to check extension requests: %w", ErrInternal, err)
			}
			if next.ShouldDeactivate(hasOpen) {
				if next, err = next.Deactivate(); err != nil {
					return fmt.Errorf("%w: %v", ErrInternal, err)
				}
				uc.logger.Info("CreateSchedule: mapping id=%d used its last session, deactivating", current.ID)
			}
		}

		updated, err := uc.mappingRepo.UpdateState(txCtx, current, next)
		if err != nil {
			if errors.Is(err, mappingRepo.ErrConcurrentUpdate) {
				uc.logger.Warn("CreateSchedule: mapping id=%d was modified concurrently", current.ID)
				return ErrConcurrentUpdate
			}
			uc.logger.Error("CreateSchedule: failed to update mapping id=%d: %v", current.ID, err)
			return fmt.Errorf("%w: failed to update mapping: %w", ErrInternal, err)
		}

		result = created
		mapping = updated
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.metrics.ScheduleCreated(req.DurationMinutes)
	if mapping.Status != before {
		uc.metrics.MappingTransition(string(before), string(mapping.Status))
	}

	uc.logger.Info("CreateSchedule: successfully created schedule id=%d, mapping id=%d remaining=%d",
		result.ID, mapping.ID, mapping.RemainingSessions)

	return &Response{
		ID:                result.ID,
		MappingID:         result.MappingID,
		ConsultantID:      result.ConsultantID,
		ClientID:          result.ClientID,
		Date:              result.Date,
		StartTime:         result.StartTime,
		EndTime:           result.EndTime,
		DurationMinutes:   result.DurationMinutes(),
		Status:            string(result.Status),
		Title:             result.Title,
		Description:       result.Description,
		RemainingSessions: mapping.RemainingSessions,
		MappingStatus:     string(mapping.Status),
		CreatedAt:         result.CreatedAt,
		UpdatedAt:         result.UpdatedAt,
	}, nil
}
