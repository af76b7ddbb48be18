package extensions

import (
	"context"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/internal/integrations/userservice"
)

// ExtensionRepository интерфейс репозитория запросов на продление
type ExtensionRepository interface {
	Create(ctx context.Context, req *domain.ExtensionRequest) (*domain.ExtensionRequest, error)
	GetByID(ctx context.Context, id int64) (*domain.ExtensionRequest, error)
	List(ctx context.Context, filter domain.ExtensionsFilter) ([]*domain.ExtensionRequest, error)
	UpdateState(ctx context.Context, prevStatus domain.ExtensionStatus, next *domain.ExtensionRequest) (*domain.ExtensionRequest, error)
	CompletedMappingIDs(ctx context.Context, mappingIDs []int64) (map[int64]struct{}, error)
	CountByStatus(ctx context.Context, period domain.StatsPeriod) (map[domain.ExtensionStatus]int64, error)
	StatsByRequester(ctx context.Context, period domain.StatsPeriod) ([]domain.RequesterStats, error)
}

// MappingRepository интерфейс репозитория маппингов
type MappingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Mapping, error)
	List(ctx context.Context, filter domain.MappingsFilter) ([]*domain.Mapping, error)
	UpdateState(ctx context.Context, prev, next *domain.Mapping) (*domain.Mapping, error)
}

// UserServiceClient интерфейс клиента для UserService
type UserServiceClient interface {
	GetUser(ctx context.Context, userID int64) (*userservice.User, error)
}

// LedgerPublisher отправляет проводки во внешнюю учетную систему
type LedgerPublisher interface {
	Publish(ctx context.Context, entry domain.LedgerEntry) error
}

// Metrics доменные метрики
type Metrics interface {
	ExtensionTransition(from, to string)
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
