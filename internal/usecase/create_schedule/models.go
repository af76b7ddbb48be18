package create_schedule

import (
	"time"

	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

// Request модель запроса на создание сессии
type Request struct {
	MappingID       int64            // ID маппинга консультант-клиент
	Date            time.Time        // Дата сессии (без времени)
	StartTime       types.TimeString // Время начала (например, "10:00")
	DurationMinutes int              // 30, 50, 80 или 100
	Title           string
	Description     *string
}

// Response модель ответа с созданной сессией
type Response struct {
	ID              int64
	MappingID       int64
	ConsultantID    int64
	ClientID        int64
	Date            time.Time
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
	Status          string
	Title           string
	Description     *string

	// Состояние маппинга после списания сессии
	RemainingSessions int
	MappingStatus     string

	CreatedAt time.Time
	UpdatedAt time.Time
}
