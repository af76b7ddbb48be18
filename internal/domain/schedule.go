package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

// ScheduleStatus represents the status of a consultation booking
type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "SCHEDULED"
	SchedulePending   ScheduleStatus = "PENDING"
	ScheduleCompleted ScheduleStatus = "COMPLETED"
	ScheduleCancelled ScheduleStatus = "CANCELLED"
)

// ParseScheduleStatus converts a stored label into the status. BOOKED and
// CONFIRMED are older names of SCHEDULED.
func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ScheduleScheduled), "BOOKED", "CONFIRMED":
		return ScheduleScheduled, nil
	case string(SchedulePending):
		return SchedulePending, nil
	case string(ScheduleCompleted):
		return ScheduleCompleted, nil
	case string(ScheduleCancelled):
		return ScheduleCancelled, nil
	default:
		return "", fmt.Errorf("%w: schedule status %q", ErrInvalidStatus, s)
	}
}

// TransitionTo проверяет допустимость смены статуса:
// SCHEDULED|PENDING -> COMPLETED|CANCELLED, PENDING -> SCHEDULED
func (s ScheduleStatus) TransitionTo(target ScheduleStatus) (ScheduleStatus, error) {
	switch {
	case (s == ScheduleScheduled || s == SchedulePending) &&
		(target == ScheduleCompleted || target == ScheduleCancelled):
		return target, nil
	case s == SchedulePending && target == ScheduleScheduled:
		return target, nil
	default:
		return s, fmt.Errorf("%w: schedule %s -> %s", ErrInvalidTransition, s, target)
	}
}

// Schedule represents a single booked consultation
type Schedule struct {
	ID           int64
	MappingID    int64
	ConsultantID int64
	ClientID     int64
	Date         time.Time
	StartTime    types.TimeString
	EndTime      types.TimeString
	Status       ScheduleStatus

	Title       string
	Description *string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the schedule takes part in conflict checks.
// Unknown stored statuses are treated as inactive.
func (s *Schedule) IsActive() bool {
	switch s.Status {
	case ScheduleScheduled, SchedulePending, ScheduleCompleted:
		return true
	default:
		return false
	}
}

// Bounds returns start and end in minutes since midnight.
// An error means the stored times are unusable.
func (s *Schedule) Bounds() (int, int, error) {
	start, err := s.StartTime.Minutes()
	if err != nil {
		return 0, 0, err
	}
	end, err := s.EndTime.Minutes()
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: end %s is not after start %s", types.ErrInvalidTimeFormat, s.EndTime, s.StartTime)
	}
	return start, end, nil
}

// DurationMinutes длительность сессии, 0 для некорректных значений
func (s *Schedule) DurationMinutes() int {
	start, end, err := s.Bounds()
	if err != nil {
		return 0
	}
	return end - start
}

// IsUpcoming true if the schedule starts at or after now
func (s *Schedule) IsUpcoming(now time.Time) bool {
	if !SameDate(s.Date, now) {
		return DateOnly(s.Date).After(DateOnly(now))
	}
	start, err := s.StartTime.Minutes()
	if err != nil {
		return false
	}
	return start >= now.Hour()*60+now.Minute()
}

// SchedulesFilter фильтр для получения расписаний
type SchedulesFilter struct {
	ConsultantID     *int64
	ClientID         *int64
	MappingID        *int64
	StartDate        *time.Time // включительно
	EndDate          *time.Time // включительно
	Statuses         []ScheduleStatus
	IncludeCancelled bool
}

// SameDate сравнивает только календарные даты
func SameDate(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DateOnly обнуляет время, сохраняя location
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
