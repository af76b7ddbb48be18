package get_available_slots

import (
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-CounselingService/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	Date            string          `json:"date"`
	ConsultantID    int64           `json:"consultantId"`
	MappingID       *int64          `json:"mappingId,omitempty"`
	MappingUsable   *bool           `json:"mappingUsable,omitempty"`
	DurationMinutes int             `json:"durationMinutes"`
	Slots           []AvailableSlot `json:"slots"`
}

// AvailableSlot модель временного слота
type AvailableSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			StartTime: slot.StartTime.String(),
			EndTime:   slot.EndTime.String(),
			Available: slot.Available,
		}
	}

	return &AvailableSlotsResponse{
		Date:            resp.Date.Format(domain.DateFormat),
		ConsultantID:    resp.ConsultantID,
		MappingID:       resp.MappingID,
		MappingUsable:   resp.MappingUsable,
		DurationMinutes: resp.DurationMinutes,
		Slots:           slots,
	}
}

// ToUseCaseRequest создает запрос use case из query параметров
func ToUseCaseRequest(consultantID int64, mappingID *int64, dateStr, durationStr string) (*getAvailableSlots.Request, error) {
	date, err := time.Parse(domain.DateFormat, dateStr)
	if err != nil {
		return nil, err
	}

	duration := 0
	if durationStr != "" {
		if duration, err = strconv.Atoi(durationStr); err != nil {
			return nil, fmt.Errorf("invalid duration: %w", err)
		}
	}

	return &getAvailableSlots.Request{
		ConsultantID:    consultantID,
		MappingID:       mappingID,
		Date:            date,
		DurationMinutes: duration,
	}, nil
}
