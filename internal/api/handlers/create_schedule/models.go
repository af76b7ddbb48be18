package create_schedule

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	createSchedule "github.com/m04kA/SMC-CounselingService/internal/usecase/create_schedule"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

// CreateScheduleRequest HTTP request model
type CreateScheduleRequest struct {
	MappingID       int64   `json:"mappingId"`
	Date            string  `json:"date"`      // "2025-10-15"
	StartTime       string  `json:"startTime"` // "10:00"
	DurationMinutes int     `json:"durationMinutes"`
	Title           string  `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
}

// ScheduleResponse HTTP response model
type ScheduleResponse struct {
	ID                int64   `json:"id"`
	MappingID         int64   `json:"mappingId"`
	ConsultantID      int64   `json:"consultantId"`
	ClientID          int64   `json:"clientId"`
	Date              string  `json:"date"`
	StartTime         string  `json:"startTime"`
	EndTime           string  `json:"endTime"`
	DurationMinutes   int     `json:"durationMinutes"`
	Status            string  `json:"status"`
	Title             string  `json:"title"`
	Description       *string `json:"description,omitempty"`
	RemainingSessions int     `json:"remainingSessions"`
	MappingStatus     string  `json:"mappingStatus"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

var (
	errInvalidDate = fmt.Errorf("invalid date")
	errInvalidTime = fmt.Errorf("invalid time")
)

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateScheduleRequest) ToUseCaseRequest() (*createSchedule.Request, error) {
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidDate, err)
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidTime, err)
	}

	return &createSchedule.Request{
		MappingID:       r.MappingID,
		Date:            date,
		StartTime:       startTime,
		DurationMinutes: r.DurationMinutes,
		Title:           r.Title,
		Description:     r.Description,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createSchedule.Response) *ScheduleResponse {
	return &ScheduleResponse{
		ID:                resp.ID,
		MappingID:         resp.MappingID,
		ConsultantID:      resp.ConsultantID,
		ClientID:          resp.ClientID,
		Date:              resp.Date.Format(domain.DateFormat),
		StartTime:         resp.StartTime.String(),
		EndTime:           resp.EndTime.String(),
		DurationMinutes:   resp.DurationMinutes,
		Status:            resp.Status,
		Title:             resp.Title,
		Description:       resp.Description,
		RemainingSessions: resp.RemainingSessions,
		MappingStatus:     resp.MappingStatus,
		CreatedAt:         resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         resp.UpdatedAt.Format(time.RFC3339),
	}
}
