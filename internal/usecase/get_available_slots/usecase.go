package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	"github.com/m04kA/SMC-CounselingService/pkg/ptr"
)

// UseCase use case для получения сетки слотов консультанта.
// Результат служит подсказкой для UI, create_schedule перепроверяет конфликт в транзакции.
type UseCase struct {
	scheduleRepo ScheduleRepository
	mappingRepo  MappingRepository
	timeProvider TimeProvider
	logger       Logger
	breakBuffer  int
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	scheduleRepo ScheduleRepository,
	mappingRepo MappingRepository,
	breakBufferMinutes int,
	logger Logger,
) *UseCase {
	return &UseCase{
		scheduleRepo: scheduleRepo,
		mappingRepo:  mappingRepo,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		breakBuffer:  breakBufferMinutes,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: consultant=%d, date=%s, duration=%d",
		req.ConsultantID, req.Date.Format(domain.DateFormat), req.DurationMinutes)

	// 1. Валидация входных данных
	duration := req.DurationMinutes
	if duration == 0 {
		duration = domain.DefaultSessionDurationMinutes
	}
	if !domain.IsAllowedDuration(duration) {
		uc.logger.Warn("GetAvailableSlots: duration %d is not allowed", duration)
		return nil, fmt.Errorf("%w: duration must be one of %v minutes", ErrInvalidInput, domain.AllowedSessionDurations)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	now := uc.timeProvider.Now()
	if domain.DateOnly(req.Date).Before(domain.DateOnly(now)) {
		uc.logger.Warn("GetAvailableSlots: date %s is in the past", req.Date.Format(domain.DateFormat))
		return nil, ErrInvalidDate
	}

	resp := &Response{
		Date:            domain.DateOnly(req.Date),
		ConsultantID:    req.ConsultantID,
		MappingID:       req.MappingID,
		DurationMinutes: duration,
	}

	// 2. Консультант из маппинга
	if req.MappingID != nil {
		mapping, err := uc.mappingRepo.GetByID(ctx, *req.MappingID)
		if err != nil {
			if errors.Is(err, mappingRepo.ErrMappingNotFound) {
				uc.logger.Warn("GetAvailableSlots: mapping id=%d not found", *req.MappingID)
				return nil, ErrMappingNotFound
			}
			uc.logger.Error("GetAvailableSlots: failed to get mapping id=%d: %v", *req.MappingID, err)
			return nil, fmt.Errorf("%w: failed to get mapping: %v", ErrInternal, err)
		}

		if !mapping.IsBrowsable() {
			uc.logger.Warn("GetAvailableSlots: mapping id=%d is %s", mapping.ID, mapping.Status)
			return nil, ErrMappingNotBrowsable
		}

		resp.ConsultantID = mapping.ConsultantID
		resp.MappingUsable = ptr.Ptr(mapping.IsUsable())
	}

	if resp.ConsultantID <= 0 {
		return nil, fmt.Errorf("%w: consultantID must be positive", ErrInvalidInput)
	}

	// 3. Сессии консультанта на эту дату
	filter := domain.SchedulesFilter{
		ConsultantID: ptr.Ptr(resp.ConsultantID),
		StartDate:    ptr.Ptr(resp.Date),
		EndDate:      ptr.Ptr(resp.Date),
	}

	schedules, err := uc.scheduleRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get schedules: %v", err)
		return nil, fmt.Errorf("%w: failed to get schedules: %v", ErrInternal, err)
	}

	// 4. Помечаем слоты
	resp.Slots = markSlots(schedules, resp.ConsultantID, resp.Date, duration, uc.breakBuffer, now)

	free := 0
	for _, s := range resp.Slots {
		if s.Available {
			free++
		}
	}

	uc.logger.Info("GetAvailableSlots: %d of %d slots available for consultant=%d, date=%s",
		free, len(resp.Slots), resp.ConsultantID, resp.Date.Format(domain.DateFormat))

	return resp, nil
}
