package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// Request модель запроса на получение сетки слотов.
// Консультант берется из маппинга, если указан MappingID.
type Request struct {
	ConsultantID    int64
	MappingID       *int64
	Date            time.Time // Дата (без времени)
	DurationMinutes int       // 0 означает длительность по умолчанию
}

// Response модель ответа со списком слотов
type Response struct {
	Date            time.Time
	ConsultantID    int64
	MappingID       *int64
	DurationMinutes int
	// MappingUsable false, если маппинг можно смотреть, но сессию создать нельзя
	MappingUsable *bool
	Slots         []domain.AvailableSlot
}
