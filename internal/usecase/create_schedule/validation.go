package create_schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.MappingID <= 0 {
		return fmt.Errorf("%w: mappingID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	if err := req.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: invalid startTime format: %v", ErrInvalidInput, err)
	}

	if !domain.IsOnSlotGrid(req.StartTime) {
		return fmt.Errorf("%w: startTime %s is not on the %d-minute grid %s-%s",
			ErrInvalidInput, req.StartTime, domain.SlotGridStepMinutes, domain.SlotGridStart, domain.SlotGridEnd)
	}

	if !domain.IsAllowedDuration(req.DurationMinutes) {
		return fmt.Errorf("%w: duration must be one of %v minutes", ErrInvalidInput, domain.AllowedSessionDurations)
	}

	if len(strings.TrimSpace(req.Title)) > domain.MaxTitleLength {
		return fmt.Errorf("%w: title is too long", ErrInvalidInput)
	}

	if req.Description != nil && len(*req.Description) > domain.MaxDescriptionLength {
		return fmt.Errorf("%w: description is too long", ErrInvalidInput)
	}

	return nil
}

// validateScheduleTime проверяет, что сессия не в прошлом
func validateScheduleTime(date time.Time, startTime types.TimeString, now time.Time) error {
	if domain.DateOnly(date).Before(domain.DateOnly(now)) {
		return ErrInvalidDate
	}

	if !domain.SameDate(date, now) {
		return nil
	}

	if startTime.IsBefore(types.NewTimeString(now)) {
		return ErrTooLateToBook
	}

	return nil
}
