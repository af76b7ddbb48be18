package create_schedule

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// ScheduleRepository интерфейс репозитория расписаний
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error)
	List(ctx context.Context, filter domain.SchedulesFilter) ([]*domain.Schedule, error)
}

// MappingRepository интерфейс репозитория маппингов
type MappingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Mapping, error)
	UpdateState(ctx context.Context, prev, next *domain.Mapping) (*domain.Mapping, error)
}

// ExtensionRepository нужен для проверки незавершенных запросов на продление
type ExtensionRepository interface {
	HasOpenRequest(ctx context.Context, mappingID int64) (bool, error)
}

// Metrics доменные метрики
type Metrics interface {
	ScheduleConflict()
	ScheduleCreated(durationMinutes int)
	MappingTransition(from, to string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
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
