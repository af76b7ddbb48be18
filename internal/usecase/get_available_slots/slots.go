package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

// markSlots помечает каждый слот сетки доступным или занятым для консультанта.
// Прошедшие сегодня слоты недоступны.
func markSlots(
	existing []*domain.Schedule,
	consultantID int64,
	date time.Time,
	durationMinutes int,
	breakBuffer int,
	now time.Time,
) []domain.AvailableSlot {
	grid := domain.SlotGrid()
	result := make([]domain.AvailableSlot, 0, len(grid))

	var nowTime types.TimeString
	isToday := domain.SameDate(date, now)
	if isToday {
		nowTime = types.NewTimeString(now)
	}

	for _, start := range grid {
		end, err := domain.SessionEnd(start, durationMinutes)
		if err != nil {
			continue
		}

		available := !domain.HasConflict(existing, consultantID, date, start, end, breakBuffer)
		if isToday && start.IsBefore(nowTime) {
			available = false
		}

		result = append(result, domain.AvailableSlot{
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: durationMinutes,
			Available:       available,
		})
	}

	return result
}
