package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// ScheduleRepository интерфейс репозитория расписаний
type ScheduleRepository interface {
	List(ctx context.Context, filter domain.SchedulesFilter) ([]*domain.Schedule, error)
}

// MappingRepository интерфейс репозитория маппингов
type MappingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Mapping, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
