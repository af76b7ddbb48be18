package models

import (
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// ChangeStatusRequest запрос на смену статуса сессии
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"` // только для отмены
}

// ListSchedulesRequest запрос на получение расписаний
type ListSchedulesRequest struct {
	ConsultantID     *int64
	ClientID         *int64
	MappingID        *int64
	StartDate        *time.Time // Начало периода (опционально)
	EndDate          *time.Time // Конец периода (опционально)
	Statuses         []string
	IncludeCancelled bool
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *ListSchedulesRequest) ToDomainFilter() (domain.SchedulesFilter, error) {
	filter := domain.SchedulesFilter{
		ConsultantID:     r.ConsultantID,
		ClientID:         r.ClientID,
		MappingID:        r.MappingID,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		IncludeCancelled: r.IncludeCancelled,
	}

	for _, s := range r.Statuses {
		status, err := domain.ParseScheduleStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	return filter, nil
}

// ScheduleResponse ответ с данными сессии
type ScheduleResponse struct {
	ID              int64   `json:"id"`
	MappingID       int64   `json:"mappingId"`
	ConsultantID    int64   `json:"consultantId"`
	ClientID        int64   `json:"clientId"`
	Date            string  `json:"date"`      // "2025-10-15"
	StartTime       string  `json:"startTime"` // "10:00"
	EndTime         string  `json:"endTime"`
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`

	CancellationReason *string `json:"cancellationReason,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"` // ISO 8601 format

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScheduleListResponse ответ со списком сессий
type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
}

// FromDomainSchedule конвертирует domain модель в DTO
func FromDomainSchedule(s *domain.Schedule) *ScheduleResponse {
	if s == nil {
		return nil
	}

	resp := &ScheduleResponse{
		ID:                 s.ID,
		MappingID:          s.MappingID,
		ConsultantID:       s.ConsultantID,
		ClientID:           s.ClientID,
		Date:               s.Date.Format(domain.DateFormat),
		StartTime:          s.StartTime.String(),
		EndTime:            s.EndTime.String(),
		DurationMinutes:    s.DurationMinutes(),
		Status:             string(s.Status),
		Title:              s.Title,
		Description:        s.Description,
		CancellationReason: s.CancellationReason,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}

	if s.CancelledAt != nil {
		cancelledStr := s.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelledStr
	}

	return resp
}

// FromDomainScheduleList конвертирует список domain моделей в DTO
func FromDomainScheduleList(schedules []*domain.Schedule) *ScheduleListResponse {
	resp := &ScheduleListResponse{
		Schedules: make([]ScheduleResponse, 0, len(schedules)),
	}

	for _, s := range schedules {
		resp.Schedules = append(resp.Schedules, *FromDomainSchedule(s))
	}

	return resp
}
