package mappings

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	userClient "github.com/m04kA/SMC-CounselingService/internal/integrations/userservice"
	"github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

// terminationCancelReason причина отмены будущих сессий при завершении маппинга
const terminationCancelReason = "mapping terminated"

// Service сервис жизненного цикла маппингов консультант-клиент
type Service struct {
	mappingRepo  MappingRepository
	scheduleRepo ScheduleRepository
	userClient   UserServiceClient
	ledger       LedgerPublisher
	txManager    TransactionManager
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса маппингов
func NewService(
	mappingRepo MappingRepository,
	scheduleRepo ScheduleRepository,
	userClient UserServiceClient,
	ledger LedgerPublisher,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
) *Service {
	return &Service{
		mappingRepo:  mappingRepo,
		scheduleRepo: scheduleRepo,
		userClient:   userClient,
		ledger:       ledger,
		txManager:    txManager,
		metrics:      metrics,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Create создает маппинг в статусе PENDING_PAYMENT.
// Консультант и клиент проверяются через UserService.
func (s *Service) Create(ctx context.Context, req *models.CreateMappingRequest) (*models.MappingResponse, error) {
	s.logger.Info("Create: consultant=%d, client=%d, package=%q, sessions=%d",
		req.ConsultantID, req.ClientID, req.PackageName, req.TotalSessions)

	if req.ConsultantID <= 0 || req.ClientID <= 0 || req.ConsultantID == req.ClientID {
		s.logger.Warn("Create: invalid participants consultant=%d, client=%d", req.ConsultantID, req.ClientID)
		return nil, fmt.Errorf("%w: consultant and client must be different users", ErrInvalidInput)
	}

	terms, err := req.ToDomainTerms()
	if err != nil {
		s.logger.Warn("Create: invalid terms: %v", err)
		return nil, err
	}

	if err := s.checkUserRole(ctx, req.ConsultantID, userClient.RoleConsultant); err != nil {
		return nil, err
	}
	if err := s.checkUserRole(ctx, req.ClientID, userClient.RoleClient); err != nil {
		return nil, err
	}

	mapping, err := domain.NewMapping(req.ConsultantID, req.ClientID, terms)
	if err != nil {
		s.logger.Warn("Create: invalid mapping: %v", err)
		return nil, err
	}

	created, err := s.mappingRepo.Create(ctx, mapping)
	if err != nil {
		s.logger.Error("Create: repository error: %v", err)
		return nil, fmt.Errorf("%w: Create - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Create: successfully created mapping id=%d", created.ID)
	return models.FromDomainMapping(created), nil
}

// Update меняет условия пакета. Допустимо только до подтверждения оплаты.
func (s *Service) Update(ctx context.Context, id int64, req *models.UpdateMappingRequest) (*models.MappingResponse, error) {
	s.logger.Info("Update: mapping id=%d, package=%q, sessions=%d", id, req.PackageName, req.TotalSessions)

	terms, err := req.ToDomainTerms()
	if err != nil {
		s.logger.Warn("Update: invalid terms for mapping id=%d: %v", id, err)
		return nil, err
	}

	_, _, err = s.transition(ctx, "Update", id, func(m *domain.Mapping) (*domain.Mapping, error) {
		return m.Edit(terms)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ConfirmPayment подтверждает оплату: PENDING_PAYMENT -> PAYMENT_CONFIRMED.
// Повтор с тем же способом и референсом возвращает сохраненный маппинг без новой проводки.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, req *models.ConfirmPaymentRequest) (*models.MappingResponse, error) {
	s.logger.Info("ConfirmPayment: mapping id=%d, method=%s", id, req.PaymentMethod)

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		s.logger.Warn("ConfirmPayment: invalid payment method %q for mapping id=%d", req.PaymentMethod, id)
		return nil, err
	}

	var amount decimal.NullDecimal
	if req.PaymentAmount != nil {
		amount = decimal.NewNullDecimal(*req.PaymentAmount)
	}

	now := s.timeProvider.Now()
	replay := false

	prev, next, err := s.transition(ctx, "ConfirmPayment", id, func(m *domain.Mapping) (*domain.Mapping, error) {
		if m.IsPaymentReplay(method, req.PaymentReference) {
			replay = true
			return nil, nil
		}
		return m.ConfirmPayment(method, req.PaymentReference, amount, now)
	})
	if err != nil {
		return nil, err
	}

	if replay {
		s.logger.Info("ConfirmPayment: mapping id=%d already paid with the same reference, skipping", id)
		return s.GetByID(ctx, id)
	}

	// Расхождение суммы не блокирует подтверждение
	if next.HasAmountMismatch() {
		s.logger.Warn("ConfirmPayment: amount mismatch for mapping id=%d: paid=%s, price=%s",
			id, next.PaymentAmount.Decimal.String(), prev.PackagePrice.String())
	}

	s.publish(ctx, domain.NewMappingLedgerEntry(next, domain.LedgerReceivable, next.ChargedAmount(), now))

	return s.GetByID(ctx, id)
}

// ConfirmDeposit подтверждает поступление средств: PAYMENT_CONFIRMED -> DEPOSIT_PENDING
func (s *Service) ConfirmDeposit(ctx context.Context, id int64, req *models.ConfirmDepositRequest) (*models.MappingResponse, error) {
	s.logger.Info("ConfirmDeposit: mapping id=%d", id)

	now := s.timeProvider.Now()

	_, next, err := s.transition(ctx, "ConfirmDeposit", id, func(m *domain.Mapping) (*domain.Mapping, error) {
		return m.ConfirmDeposit(req.DepositReference, now)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewMappingLedgerEntry(next, domain.LedgerCashIncome, next.ChargedAmount(), now))

	return s.GetByID(ctx, id)
}

// Approve активирует маппинг: DEPOSIT_PENDING -> ACTIVE
func (s *Service) Approve(ctx context.Context, id int64, req *models.ApproveRequest) (*models.MappingResponse, error) {
	s.logger.Info("Approve: mapping id=%d by %q", id, req.AdminName)

	now := s.timeProvider.Now()

	_, _, err := s.transition(ctx, "Approve", id, func(m *domain.Mapping) (*domain.Mapping, error) {
		return m.Approve(req.AdminName, now)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Terminate досрочно завершает маппинг.
// Будущие сессии отменяются в той же транзакции, за неиспользованные сессии оформляется возврат.
func (s *Service) Terminate(ctx context.Context, id int64, req *models.TerminateRequest) (*models.MappingResponse, error) {
	s.logger.Info("Terminate: mapping id=%d, reason=%q", id, req.Reason)

	now := s.timeProvider.Now()

	var (
		refund    decimal.Decimal
		cancelled int64
	)

	_, next, err := s.transition(ctx, "Terminate", id, func(m *domain.Mapping) (*domain.Mapping, error) {
		next, r, err := m.Terminate(req.Reason, now)
		if err != nil {
			return nil, err
		}
		refund = r
		return next, nil
	}, func(txCtx context.Context, next *domain.Mapping) error {
		n, err := s.scheduleRepo.CancelUpcomingByMapping(txCtx, next.ID, now, terminationCancelReason)
		if err != nil {
			s.logger.Error("Terminate: failed to cancel upcoming schedules for mapping id=%d: %v", id, err)
			return fmt.Errorf("%w: Terminate - cancel schedules: %w", ErrInternal, err)
		}
		cancelled = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Terminate: mapping id=%d terminated, cancelled %d upcoming schedules, refund=%s",
		id, cancelled, refund.String())

	if refund.IsPositive() {
		s.publish(ctx, domain.NewMappingLedgerEntry(next, domain.LedgerRefund, refund, now))
	}

	return s.GetByID(ctx, id)
}

// GetByID получает маппинг по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*models.MappingResponse, error) {
	mapping, err := s.mappingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mappingRepo.ErrMappingNotFound) {
			s.logger.Warn("GetByID: mapping id=%d not found", id)
			return nil, ErrMappingNotFound
		}
		s.logger.Error("GetByID: repository error for mapping id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainMapping(mapping), nil
}

// List возвращает маппинги с фильтрацией по консультанту, клиенту и статусам
func (s *Service) List(ctx context.Context, req *models.ListMappingsRequest) (*models.MappingListResponse, error) {
	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("List: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	mappings, err := s.mappingRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error: %v", err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: fetched %d mappings", len(mappings))
	return models.FromDomainMappingList(mappings), nil
}

// Вспомогательные методы

// transition выполняет переход в сериализуемой транзакции:
// блокировка строки, чистый переход, CAS-запись, затем дополнительные шаги в той же транзакции.
// Если apply вернул (nil, nil), запись не выполняется.
func (s *Service) transition(
	ctx context.Context,
	op string,
	id int64,
	apply func(m *domain.Mapping) (*domain.Mapping, error),
	after ...func(txCtx context.Context, next *domain.Mapping) error,
) (*domain.Mapping, *domain.Mapping, error) {
	var prev, next *domain.Mapping

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		current, err := s.mappingRepo.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, mappingRepo.ErrMappingNotFound) {
				s.logger.Warn("%s: mapping id=%d not found", op, id)
				return ErrMappingNotFound
			}
			s.logger.Error("%s: failed to get mapping id=%d: %v", op, id, err)
			return fmt.Errorf("%w: %s - get mapping: %w", ErrInternal, op, err)
		}

		candidate, err := apply(current)
		if err != nil {
			s.logger.Warn("%s: transition rejected for mapping id=%d in status %s: %v", op, id, current.Status, err)
			return err
		}
		if candidate == nil {
			prev, next = current, current
			return nil
		}

		updated, err := s.mappingRepo.UpdateState(txCtx, current, candidate)
		if err != nil {
			if errors.Is(err, mappingRepo.ErrConcurrentUpdate) {
				s.logger.Warn("%s: mapping id=%d was modified concurrently", op, id)
				return ErrConcurrentUpdate
			}
			s.logger.Error("%s: failed to update mapping id=%d: %v", op, id, err)
			return fmt.Errorf("%w: %s - update mapping: %w", ErrInternal, op, err)
		}

		for _, fn := range after {
			if err := fn(txCtx, updated); err != nil {
				return err
			}
		}

		prev, next = current, updated
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if prev.Status != next.Status {
		s.metrics.MappingTransition(string(prev.Status), string(next.Status))
		s.logger.Info("%s: mapping id=%d moved %s -> %s", op, id, prev.Status, next.Status)
	}

	return prev, next, nil
}

// publish отправляет проводку после коммита. Ошибка доставки не откатывает переход.
func (s *Service) publish(ctx context.Context, entry domain.LedgerEntry) {
	if err := s.ledger.Publish(ctx, entry); err != nil {
		s.logger.Error("ledger posting failed for mapping id=%d, kind=%s, key=%s: %v",
			entry.MappingID, entry.Kind, entry.IdempotencyKey, err)
	}
}

// checkUserRole проверяет, что пользователь существует и имеет нужную роль
func (s *Service) checkUserRole(ctx context.Context, userID int64, role string) error {
	user, err := s.userClient.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			s.logger.Warn("checkUserRole: user id=%d not found", userID)
			return fmt.Errorf("%w: id=%d", ErrUserNotFound, userID)
		}
		s.logger.Error("checkUserRole: failed to get user id=%d: %v", userID, err)
		return fmt.Errorf("%w: checkUserRole - failed to get user: %v", ErrInternal, err)
	}

	if !user.HasRole(role) {
		s.logger.Warn("checkUserRole: user id=%d has role %s, expected %s", userID, user.Role, role)
		return fmt.Errorf("%w: user id=%d is not %s", ErrInvalidUserRole, userID, role)
	}

	return nil
}
