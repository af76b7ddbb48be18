package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CounselingService/pkg/psqlbuilder"
)

const table = "mappings"

var columns = []string{
	"id",
	"consultant_id",
	"client_id",
	"status",
	"total_sessions",
	"used_sessions",
	"remaining_sessions",
	"package_name",
	"package_price",
	"payment_method",
	"payment_reference",
	"payment_amount",
	"payment_confirmed_at",
	"deposit_reference",
	"deposit_confirmed_at",
	"approved_by",
	"approved_at",
	"termination_reason",
	"terminated_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий маппингов консультант-клиент
type Repository struct {
	db     DBExecutor
	logger Logger
}

// NewRepository создает новый экземпляр репозитория маппингов
func NewRepository(db DBExecutor, logger Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create сохраняет новый маппинг
func (r *Repository) Create(ctx context.Context, m *domain.Mapping) (*domain.Mapping, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(table).
		Columns(
			"consultant_id",
			"client_id",
			"status",
			"total_sessions",
			"used_sessions",
			"remaining_sessions",
			"package_name",
			"package_price",
			"payment_method",
			"payment_reference",
		).
		Values(
			m.ConsultantID,
			m.ClientID,
			string(m.Status),
			m.TotalSessions,
			m.UsedSessions,
			m.RemainingSessions,
			m.PackageName,
			m.PackagePrice,
			string(m.PaymentMethod),
			m.PaymentReference,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	created := *m
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return &created, nil
}

// GetByID получает маппинг по ID.
// Внутри транзакции строка блокируется (FOR UPDATE) до конца транзакции.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Mapping, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	m, err := scanMapping(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - %w", ErrScanRow, err)
	}

	return m, nil
}

// List возвращает маппинги по фильтру, новые первыми
func (r *Repository) List(ctx context.Context, filter domain.MappingsFilter) ([]*domain.Mapping, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(table).
		OrderBy("created_at DESC", "id DESC")

	if filter.ConsultantID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"consultant_id": *filter.ConsultantID})
	}
	if filter.ClientID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if len(filter.Statuses) > 0 {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": storedLabels(filter.Statuses...)})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.collectMappings(rows)
}

// collectMappings читает строки выборки. Строка с неизвестным статусом пропускается,
// остальная выборка возвращается.
func (r *Repository) collectMappings(rows rowIterator) ([]*domain.Mapping, error) {
	mappings := make([]*domain.Mapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if errors.Is(err, domain.ErrInvalidStatus) {
			r.logger.Warn("mapping.repository: skip row: %v", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: List - %w", ErrScanRow, err)
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows error: %w", ErrScanRow, err)
	}

	return mappings, nil
}

// UpdateState записывает новое состояние маппинга (compare-and-swap).
// Запись проходит, только если статус и счетчики сессий в БД совпадают с prev,
// иначе возвращается ErrConcurrentUpdate.
func (r *Repository) UpdateState(ctx context.Context, prev, next *domain.Mapping) (*domain.Mapping, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		Set("status", string(next.Status)).
		Set("total_sessions", next.TotalSessions).
		Set("used_sessions", next.UsedSessions).
		Set("remaining_sessions", next.RemainingSessions).
		Set("package_name", next.PackageName).
		Set("package_price", next.PackagePrice).
		Set("payment_method", string(next.PaymentMethod)).
		Set("payment_reference", next.PaymentReference).
		Set("payment_amount", next.PaymentAmount).
		Set("payment_confirmed_at", next.PaymentConfirmedAt).
		Set("deposit_reference", next.DepositReference).
		Set("deposit_confirmed_at", next.DepositConfirmedAt).
		Set("approved_by", next.ApprovedBy).
		Set("approved_at", next.ApprovedAt).
		Set("termination_reason", next.TerminationReason).
		Set("terminated_at", next.TerminatedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":             prev.ID,
			"status":         storedLabels(prev.Status),
			"total_sessions": prev.TotalSessions,
			"used_sessions":  prev.UsedSessions,
		}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateState - build update query: %v", ErrBuildQuery, err)
	}

	updated := *next
	err = executor.QueryRowContext(ctx, query, args...).Scan(&updated.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateState - execute update: %w", ErrExecQuery, err)
	}

	return &updated, nil
}

// storedLabels метки статусов в БД. DEPOSIT_PENDING мог быть записан как ACTIVE_PENDING.
func storedLabels(statuses ...domain.MappingStatus) []string {
	labels := make([]string, 0, len(statuses)+1)
	for _, s := range statuses {
		labels = append(labels, string(s))
		if s == domain.MappingDepositPending {
			labels = append(labels, "ACTIVE_PENDING")
		}
	}
	return labels
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type rowIterator interface {
	rowScanner
	Next() bool
	Err() error
}

func scanMapping(row rowScanner) (*domain.Mapping, error) {
	var (
		m             domain.Mapping
		status        string
		paymentMethod string
	)

	err := row.Scan(
		&m.ID,
		&m.ConsultantID,
		&m.ClientID,
		&status,
		&m.TotalSessions,
		&m.UsedSessions,
		&m.RemainingSessions,
		&m.PackageName,
		&m.PackagePrice,
		&paymentMethod,
		&m.PaymentReference,
		&m.PaymentAmount,
		&m.PaymentConfirmedAt,
		&m.DepositReference,
		&m.DepositConfirmedAt,
		&m.ApprovedBy,
		&m.ApprovedAt,
		&m.TerminationReason,
		&m.TerminatedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.Status, err = domain.ParseMappingStatus(status); err != nil {
		return nil, fmt.Errorf("mapping id=%d: %w", m.ID, err)
	}
	m.PaymentMethod = domain.PaymentMethod(paymentMethod)
	if method, err := domain.ParsePaymentMethod(paymentMethod); err == nil {
		m.PaymentMethod = method
	}

	return &m, nil
}
