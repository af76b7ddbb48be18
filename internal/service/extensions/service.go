package extensions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	extensionRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/extension"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	userClient "github.com/m04kA/SMC-CounselingService/internal/integrations/userservice"
	"github.com/m04kA/SMC-CounselingService/internal/service/extensions/models"
	mappingModels "github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

// statisticsWeekDays окно недельной статистики
const statisticsWeekDays = 7

// Service сервис запросов на продление пакета сессий
type Service struct {
	extensionRepo ExtensionRepository
	mappingRepo   MappingRepository
	userClient    UserServiceClient
	ledger        LedgerPublisher
	txManager     TransactionManager
	metrics       Metrics
	timeProvider  TimeProvider
	logger        Logger
}

// NewService создает новый экземпляр сервиса
func NewService(
	extensionRepo ExtensionRepository,
	mappingRepo MappingRepository,
	userClient UserServiceClient,
	ledger LedgerPublisher,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
) *Service {
	return &Service{
		extensionRepo: extensionRepo,
		mappingRepo:   mappingRepo,
		userClient:    userClient,
		ledger:        ledger,
		txManager:     txManager,
		metrics:       metrics,
		timeProvider:  &RealTimeProvider{},
		logger:        logger,
	}
}

// Create создает запрос на продление в статусе PENDING.
// Автор запроса: консультант или клиент маппинга либо администратор.
// У маппинга может быть только один незавершенный запрос.
func (s *Service) Create(ctx context.Context, req *models.CreateExtensionRequest) (*models.ExtensionResponse, error) {
	s.logger.Info("Create: mapping id=%d, requester=%d, additional=%d", req.MappingID, req.RequesterID, req.AdditionalSessions)

	request, err := domain.NewExtensionRequest(req.MappingID, req.RequesterID, req.AdditionalSessions, req.PackageName, req.PackagePrice, req.Reason)
	if err != nil {
		s.logger.Warn("Create: invalid request for mapping id=%d: %v", req.MappingID, err)
		return nil, err
	}

	requester, err := s.getUser(ctx, "Create", req.RequesterID)
	if err != nil {
		return nil, err
	}

	var created *domain.ExtensionRequest

	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		mapping, err := s.loadMapping(txCtx, "Create", req.MappingID)
		if err != nil {
			return err
		}

		if !requester.HasRole(userClient.RoleAdmin) && requester.ID != mapping.ConsultantID && requester.ID != mapping.ClientID {
			s.logger.Warn("Create: user id=%d is not a participant of mapping id=%d", requester.ID, mapping.ID)
			return ErrRequesterNotAllowed
		}

		if len(domain.EligibleForExtension([]*domain.Mapping{mapping}, nil)) == 0 {
			s.logger.Warn("Create: mapping id=%d in status %s is not eligible", mapping.ID, mapping.Status)
			return ErrMappingNotEligible
		}

		created, err = s.extensionRepo.Create(txCtx, request)
		if err != nil {
			if errors.Is(err, extensionRepo.ErrOpenRequestExists) {
				s.logger.Warn("Create: mapping id=%d already has an open request", mapping.ID)
				return ErrPendingRequestExists
			}
			s.logger.Error("Create: repository error: %v", err)
			return fmt.Errorf("%w: Create - repository error: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Create: successfully created extension request id=%d", created.ID)
	return models.FromDomainExtension(created), nil
}

// ConfirmPayment подтверждает оплату. Новый запрос сразу завершается и добавляет сессии.
func (s *Service) ConfirmPayment(ctx context.Context, id int64, req *models.ConfirmPaymentRequest) (*models.ExtensionResponse, error) {
	s.logger.Info("ConfirmPayment: extension request id=%d, method=%s", id, req.PaymentMethod)

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		s.logger.Warn("ConfirmPayment: invalid payment method %q", req.PaymentMethod)
		return nil, err
	}

	now := s.timeProvider.Now()

	next, err := s.transition(ctx, "ConfirmPayment", id, func(r *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
		return r.ConfirmPayment(method, req.PaymentReference, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishCompletion(ctx, next, now)
	return s.GetByID(ctx, id)
}

// Approve одобрение администратором: PENDING|PAYMENT_CONFIRMED -> ADMIN_APPROVED
func (s *Service) Approve(ctx context.Context, id int64, adminID int64, req *models.ApproveRequest) (*models.ExtensionResponse, error) {
	s.logger.Info("Approve: extension request id=%d by admin=%d", id, adminID)

	if err := s.checkAdmin(ctx, "Approve", adminID); err != nil {
		return nil, err
	}

	now := s.timeProvider.Now()

	if _, err := s.transition(ctx, "Approve", id, func(r *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
		return r.Approve(adminID, req.Comment, now)
	}); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Complete завершает одобренный запрос и добавляет сессии маппингу ровно один раз.
// Повторный вызов возвращает domain.ErrAlreadyCompleted.
func (s *Service) Complete(ctx context.Context, id int64) (*models.ExtensionResponse, error) {
	s.logger.Info("Complete: extension request id=%d", id)

	now := s.timeProvider.Now()

	next, err := s.transition(ctx, "Complete", id, func(r *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
		return r.Complete(now)
	})
	if err != nil {
		return nil, err
	}

	s.publishCompletion(ctx, next, now)
	return s.GetByID(ctx, id)
}

// Reject отклоняет незавершенный запрос. Сессии не добавляются.
// Исчерпанный ACTIVE маппинг, который ждал этого продления, становится INACTIVE.
func (s *Service) Reject(ctx context.Context, id int64, adminID int64, req *models.RejectRequest) (*models.ExtensionResponse, error) {
	s.logger.Info("Reject: extension request id=%d by admin=%d, reason=%q", id, adminID, req.Reason)

	if err := s.checkAdmin(ctx, "Reject", adminID); err != nil {
		return nil, err
	}

	now := s.timeProvider.Now()

	if _, err := s.transition(ctx, "Reject", id, func(r *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
		return r.Reject(adminID, req.Reason, now)
	}); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// GetByID получает запрос по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*models.ExtensionResponse, error) {
	request, err := s.extensionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, extensionRepo.ErrRequestNotFound) {
			s.logger.Warn("GetByID: extension request id=%d not found", id)
			return nil, ErrRequestNotFound
		}
		s.logger.Error("GetByID: repository error for extension request id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainExtension(request), nil
}

// List возвращает запросы с фильтрацией по маппингу и статусам
func (s *Service) List(ctx context.Context, req *models.ListExtensionsRequest) (*models.ExtensionListResponse, error) {
	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("List: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	requests, err := s.extensionRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error: %v", err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: fetched %d extension requests", len(requests))
	return models.FromDomainExtensionList(requests), nil
}

// ListEligibleMappings возвращает маппинги, к которым можно оформить продление:
// статус из допустимого набора и ни одного завершенного продления
func (s *Service) ListEligibleMappings(ctx context.Context, consultantID, clientID *int64) (*mappingModels.MappingListResponse, error) {
	mappings, err := s.mappingRepo.List(ctx, domain.MappingsFilter{
		ConsultantID: consultantID,
		ClientID:     clientID,
		Statuses:     domain.ExtensionEligibleStatuses,
	})
	if err != nil {
		s.logger.Error("ListEligibleMappings: failed to list mappings: %v", err)
		return nil, fmt.Errorf("%w: ListEligibleMappings - list mappings: %v", ErrInternal, err)
	}

	if len(mappings) == 0 {
		return mappingModels.FromDomainMappingList(mappings), nil
	}

	ids := make([]int64, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.ID)
	}

	completed, err := s.extensionRepo.CompletedMappingIDs(ctx, ids)
	if err != nil {
		s.logger.Error("ListEligibleMappings: failed to load completed requests: %v", err)
		return nil, fmt.Errorf("%w: ListEligibleMappings - completed requests: %v", ErrInternal, err)
	}

	eligible := domain.EligibleForExtension(mappings, completed)

	s.logger.Info("ListEligibleMappings: %d of %d mappings are eligible", len(eligible), len(mappings))
	return mappingModels.FromDomainMappingList(eligible), nil
}

// Statistics статистика запросов на продление: по статусам за период и за последние 7 дней,
// количество и сумма пакетов по заявителям за период
func (s *Service) Statistics(ctx context.Context, req *models.StatisticsRequest) (*models.StatisticsResponse, error) {
	period, err := req.ToDomainPeriod()
	if err != nil {
		s.logger.Warn("Statistics: invalid period: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	byStatus, err := s.extensionRepo.CountByStatus(ctx, period)
	if err != nil {
		s.logger.Error("Statistics: failed to count by status: %v", err)
		return nil, fmt.Errorf("%w: Statistics - count by status: %v", ErrInternal, err)
	}

	weekAgo := s.timeProvider.Now().AddDate(0, 0, -statisticsWeekDays)
	lastWeek, err := s.extensionRepo.CountByStatus(ctx, domain.StatsPeriod{From: &weekAgo})
	if err != nil {
		s.logger.Error("Statistics: failed to count last week: %v", err)
		return nil, fmt.Errorf("%w: Statistics - count last week: %v", ErrInternal, err)
	}

	requesters, err := s.extensionRepo.StatsByRequester(ctx, period)
	if err != nil {
		s.logger.Error("Statistics: failed to aggregate by requester: %v", err)
		return nil, fmt.Errorf("%w: Statistics - by requester: %v", ErrInternal, err)
	}

	resp := &models.StatisticsResponse{
		StartDate:  models.FormatDate(req.StartDate),
		EndDate:    models.FormatDate(req.EndDate),
		Period:     models.FromDomainStatusCounts(byStatus),
		LastWeek:   models.FromDomainStatusCounts(lastWeek),
		Requesters: models.FromDomainRequesterStats(requesters),
	}

	// имя заявителя не обязательно: при недоступном UserService статистика отдается без него
	for i := range resp.Requesters {
		user, err := s.userClient.GetUser(ctx, resp.Requesters[i].RequesterID)
		if err != nil {
			s.logger.Warn("Statistics: failed to get requester id=%d: %v", resp.Requesters[i].RequesterID, err)
			continue
		}
		resp.Requesters[i].RequesterName = user.Name
	}

	s.logger.Info("Statistics: period total=%d, last week total=%d, requesters=%d",
		resp.Period.Total, resp.LastWeek.Total, len(resp.Requesters))
	return resp, nil
}

// Вспомогательные методы

// transition переводит запрос в сериализуемой транзакции (CAS по статусу).
// Если запрос перешел в COMPLETED, в той же транзакции сессии добавляются маппингу.
// Если запрос перешел в REJECTED, исчерпанный маппинг в той же транзакции деактивируется.
func (s *Service) transition(
	ctx context.Context,
	op string,
	id int64,
	apply func(r *domain.ExtensionRequest) (*domain.ExtensionRequest, error),
) (*domain.ExtensionRequest, error) {
	var (
		prev, next  *domain.ExtensionRequest
		deactivated bool
	)

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		current, err := s.extensionRepo.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, extensionRepo.ErrRequestNotFound) {
				s.logger.Warn("%s: extension request id=%d not found", op, id)
				return ErrRequestNotFound
			}
			s.logger.Error("%s: failed to get extension request id=%d: %v", op, id, err)
			return fmt.Errorf("%w: %s - get request: %w", ErrInternal, op, err)
		}

		candidate, err := apply(current)
		if err != nil {
			s.logger.Warn("%s: transition rejected for extension request id=%d in status %s: %v", op, id, current.Status, err)
			return err
		}

		updated, err := s.extensionRepo.UpdateState(txCtx, current.Status, candidate)
		if err != nil {
			if errors.Is(err, extensionRepo.ErrConcurrentUpdate) {
				s.logger.Warn("%s: extension request id=%d was modified concurrently", op, id)
				return ErrConcurrentUpdate
			}
			s.logger.Error("%s: failed to update extension request id=%d: %v", op, id, err)
			return fmt.Errorf("%w: %s - update request: %w", ErrInternal, op, err)
		}

		switch updated.Status {
		case domain.ExtensionCompleted:
			if err := s.applySessions(txCtx, op, updated); err != nil {
				return err
			}
		case domain.ExtensionRejected:
			if deactivated, err = s.deactivateIfExhausted(txCtx, op, updated.MappingID); err != nil {
				return err
			}
		}

		prev, next = current, updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ExtensionTransition(string(prev.Status), string(next.Status))
	if deactivated {
		s.metrics.MappingTransition(string(domain.MappingActive), string(domain.MappingInactive))
	}
	s.logger.Info("%s: extension request id=%d moved %s -> %s", op, id, prev.Status, next.Status)

	return next, nil
}

// applySessions добавляет сессии маппингу завершенного запроса
func (s *Service) applySessions(txCtx context.Context, op string, r *domain.ExtensionRequest) error {
	mapping, err := s.loadMapping(txCtx, op, r.MappingID)
	if err != nil {
		return err
	}

	if mapping.Status == domain.MappingInactive {
		s.logger.Warn("%s: mapping id=%d is inactive, cannot add sessions", op, mapping.ID)
		return ErrMappingNotEligible
	}

	extended, err := mapping.AddSessions(r.AdditionalSessions)
	if err != nil {
		return err
	}

	if _, err := s.mappingRepo.UpdateState(txCtx, mapping, extended); err != nil {
		if errors.Is(err, mappingRepo.ErrConcurrentUpdate) {
			s.logger.Warn("%s: mapping id=%d was modified concurrently", op, mapping.ID)
			return ErrConcurrentUpdate
		}
		s.logger.Error("%s: failed to add sessions to mapping id=%d: %v", op, mapping.ID, err)
		return fmt.Errorf("%w: %s - update mapping: %w", ErrInternal, op, err)
	}

	s.logger.Info("%s: mapping id=%d extended by %d sessions, total=%d, remaining=%d",
		op, mapping.ID, r.AdditionalSessions, extended.TotalSessions, extended.RemainingSessions)
	return nil
}

// deactivateIfExhausted переводит ACTIVE маппинг без остатка сессий в INACTIVE.
// Вызывается после отклонения единственного незавершенного запроса, поэтому открытых запросов нет.
func (s *Service) deactivateIfExhausted(txCtx context.Context, op string, mappingID int64) (bool, error) {
	mapping, err := s.loadMapping(txCtx, op, mappingID)
	if err != nil {
		return false, err
	}

	if !mapping.ShouldDeactivate(false) {
		return false, nil
	}

	inactive, err := mapping.Deactivate()
	if err != nil {
		return false, err
	}

	if _, err := s.mappingRepo.UpdateState(txCtx, mapping, inactive); err != nil {
		if errors.Is(err, mappingRepo.ErrConcurrentUpdate) {
			s.logger.Warn("%s: mapping id=%d was modified concurrently", op, mapping.ID)
			return false, ErrConcurrentUpdate
		}
		s.logger.Error("%s: failed to deactivate mapping id=%d: %v", op, mapping.ID, err)
		return false, fmt.Errorf("%w: %s - deactivate mapping: %w", ErrInternal, op, err)
	}

	s.logger.Info("%s: mapping id=%d has no remaining sessions, deactivated", op, mapping.ID)
	return true, nil
}

// getUser загружает пользователя из UserService
func (s *Service) getUser(ctx context.Context, op string, userID int64) (*userClient.User, error) {
	user, err := s.userClient.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userClient.ErrUserNotFound) {
			s.logger.Warn("%s: user id=%d not found", op, userID)
			return nil, fmt.Errorf("%w: id=%d", ErrUserNotFound, userID)
		}
		s.logger.Error("%s: failed to get user id=%d: %v", op, userID, err)
		return nil, fmt.Errorf("%w: %s - failed to get user: %v", ErrInternal, op, err)
	}
	return user, nil
}

// checkAdmin проверяет, что решение принимает администратор
func (s *Service) checkAdmin(ctx context.Context, op string, userID int64) error {
	user, err := s.getUser(ctx, op, userID)
	if err != nil {
		return err
	}

	if !user.HasRole(userClient.RoleAdmin) {
		s.logger.Warn("%s: user id=%d has role %s, expected %s", op, userID, user.Role, userClient.RoleAdmin)
		return fmt.Errorf("%w: user id=%d", ErrAdminRequired, userID)
	}
	return nil
}

func (s *Service) loadMapping(txCtx context.Context, op string, id int64) (*domain.Mapping, error) {
	mapping, err := s.mappingRepo.GetByID(txCtx, id)
	if err != nil {
		if errors.Is(err, mappingRepo.ErrMappingNotFound) {
			s.logger.Warn("%s: mapping id=%d not found", op, id)
			return nil, ErrMappingNotFound
		}
		s.logger.Error("%s: failed to get mapping id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - get mapping: %w", ErrInternal, op, err)
	}
	return mapping, nil
}

// publishCompletion отправляет проводку по завершенному продлению после коммита
func (s *Service) publishCompletion(ctx context.Context, r *domain.ExtensionRequest, at time.Time) {
	if r.Status != domain.ExtensionCompleted {
		return
	}

	entry := domain.NewExtensionLedgerEntry(r, at)
	if err := s.ledger.Publish(ctx, entry); err != nil {
		s.logger.Error("ledger posting failed for extension request id=%d, key=%s: %v",
			r.ID, entry.IdempotencyKey, err)
	}
}
