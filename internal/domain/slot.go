package domain

import "github.com/m04kA/SMC-CounselingService/pkg/types"

// AvailableSlot represents a start time offered for booking
type AvailableSlot struct {
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
	Available       bool
}

// SlotGrid returns the fixed start-time grid 09:00..20:00 every 30 minutes (both ends included)
func SlotGrid() []types.TimeString {
	first, _ := types.ToMinutes(SlotGridStart)
	last, _ := types.ToMinutes(SlotGridEnd)

	grid := make([]types.TimeString, 0, (last-first)/SlotGridStepMinutes+1)
	for m := first; m <= last; m += SlotGridStepMinutes {
		grid = append(grid, types.FromMinutes(m))
	}
	return grid
}

// IsOnSlotGrid проверяет, что время начала совпадает с одним из слотов сетки
func IsOnSlotGrid(start types.TimeString) bool {
	minutes, err := start.Minutes()
	if err != nil {
		return false
	}
	first, _ := types.ToMinutes(SlotGridStart)
	last, _ := types.ToMinutes(SlotGridEnd)
	return minutes >= first && minutes <= last && (minutes-first)%SlotGridStepMinutes == 0
}

// SessionEnd конец сессии: начало плюс длительность, ограничено концом суток
func SessionEnd(start types.TimeString, durationMinutes int) (types.TimeString, error) {
	minutes, err := start.Minutes()
	if err != nil {
		return "", err
	}
	return types.FromMinutes(minutes + durationMinutes), nil
}
