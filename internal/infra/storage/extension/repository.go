package extension

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CounselingService/pkg/psqlbuilder"
)

const table = "extension_requests"

// uniqueViolation SQLSTATE 23505
const uniqueViolation = "23505"

// openRequestIndex частичный уникальный индекс на незавершенные запросы
const openRequestIndex = "uq_extension_requests_open"

var columns = []string{
	"id",
	"mapping_id",
	"requester_id",
	"additional_sessions",
	"package_name",
	"package_price",
	"reason",
	"status",
	"payment_method",
	"payment_reference",
	"approved_by",
	"approved_at",
	"admin_comment",
	"rejected_by",
	"rejected_at",
	"rejection_reason",
	"completed_at",
	"created_at",
	"updated_at",
}

// openStatuses незавершенные статусы запроса
var openStatuses = []string{
	string(domain.ExtensionPending),
	string(domain.ExtensionPaymentConfirmed),
	string(domain.ExtensionAdminApproved),
}

// Repository репозиторий запросов на продление пакета
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новый запрос.
// Второй незавершенный запрос для того же маппинга отклоняется уникальным индексом.
func (r *Repository) Create(ctx context.Context, req *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := insertQuery(req).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	created := *req
	err = executor.QueryRowContext(ctx, query, args...).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isOpenRequestConflict(err) {
			return nil, ErrOpenRequestExists
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return &created, nil
}

func insertQuery(req *domain.ExtensionRequest) squirrel.InsertBuilder {
	return psqlbuilder.Insert(table).
		Columns(
			"mapping_id",
			"requester_id",
			"additional_sessions",
			"package_name",
			"package_price",
			"reason",
			"status",
		).
		Values(
			req.MappingID,
			req.RequesterID,
			req.AdditionalSessions,
			req.PackageName,
			req.PackagePrice,
			req.Reason,
			string(req.Status),
		).
		Suffix("RETURNING id, created_at, updated_at")
}

// isOpenRequestConflict true, если вставка нарушила индекс незавершенных запросов
func isOpenRequestConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == openRequestIndex
}

// GetByID получает запрос по ID, внутри транзакции с блокировкой строки
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.ExtensionRequest, error) {
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

	req, err := scanRequest(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - %w", ErrScanRow, err)
	}

	return req, nil
}

// List возвращает запросы по фильтру, новые первыми
func (r *Repository) List(ctx context.Context, filter domain.ExtensionsFilter) ([]*domain.ExtensionRequest, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	requests := make([]*domain.ExtensionRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: List - %w", ErrScanRow, err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows error: %w", ErrScanRow, err)
	}

	return requests, nil
}

func listQuery(filter domain.ExtensionsFilter) squirrel.SelectBuilder {
	selectBuilder := psqlbuilder.Select(columns...).
		From(table).
		OrderBy("created_at DESC", "id DESC")

	if filter.MappingID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"mapping_id": *filter.MappingID})
	}
	if filter.RequesterID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"requester_id": *filter.RequesterID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": statuses})
	}

	return selectBuilder
}

// UpdateState записывает новое состояние запроса, если статус в БД все еще prevStatus
func (r *Repository) UpdateState(ctx context.Context, prevStatus domain.ExtensionStatus, next *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(table).
		Set("status", string(next.Status)).
		Set("payment_method", string(next.PaymentMethod)).
		Set("payment_reference", next.PaymentReference).
		Set("approved_by", next.ApprovedBy).
		Set("approved_at", next.ApprovedAt).
		Set("admin_comment", next.AdminComment).
		Set("rejected_by", next.RejectedBy).
		Set("rejected_at", next.RejectedAt).
		Set("rejection_reason", next.RejectionReason).
		Set("completed_at", next.CompletedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": next.ID, "status": string(prevStatus)}).
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

// HasOpenRequest true, если у маппинга есть незавершенный запрос на продление
func (r *Repository) HasOpenRequest(ctx context.Context, mappingID int64) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From(table).
		Where(squirrel.Eq{"mapping_id": mappingID, "status": openStatuses}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: HasOpenRequest - build select query: %v", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: HasOpenRequest - %w", ErrExecQuery, err)
	}

	return true, nil
}

// CompletedMappingIDs возвращает множество маппингов из mappingIDs, у которых есть COMPLETED запрос.
// Пустой mappingIDs означает все маппинги.
func (r *Repository) CompletedMappingIDs(ctx context.Context, mappingIDs []int64) (map[int64]struct{}, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select("DISTINCT mapping_id").
		From(table).
		Where(squirrel.Eq{"status": string(domain.ExtensionCompleted)})

	if len(mappingIDs) > 0 {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"mapping_id": mappingIDs})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CompletedMappingIDs - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: CompletedMappingIDs - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: CompletedMappingIDs - scan mapping_id: %w", ErrScanRow, err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: CompletedMappingIDs - rows error: %w", ErrScanRow, err)
	}

	return ids, nil
}

// CountByStatus количество запросов по статусам за период.
// Строки с неизвестным статусом не учитываются.
func (r *Repository) CountByStatus(ctx context.Context, period domain.StatsPeriod) (map[domain.ExtensionStatus]int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := statusStatsQuery(period).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CountByStatus - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: CountByStatus - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	counts := make(map[domain.ExtensionStatus]int64)
	for rows.Next() {
		var (
			label string
			count int64
		)
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("%w: CountByStatus - scan row: %w", ErrScanRow, err)
		}
		status, err := domain.ParseExtensionStatus(label)
		if err != nil {
			continue
		}
		counts[status] += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: CountByStatus - rows error: %w", ErrScanRow, err)
	}

	return counts, nil
}

// StatsByRequester количество запросов и сумма пакетов по каждому заявителю за период.
// Самые активные заявители первыми.
func (r *Repository) StatsByRequester(ctx context.Context, period domain.StatsPeriod) ([]domain.RequesterStats, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := requesterStatsQuery(period).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: StatsByRequester - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: StatsByRequester - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	stats := make([]domain.RequesterStats, 0)
	for rows.Next() {
		var st domain.RequesterStats
		if err := rows.Scan(&st.RequesterID, &st.RequestCount, &st.TotalAmount); err != nil {
			return nil, fmt.Errorf("%w: StatsByRequester - scan row: %w", ErrScanRow, err)
		}
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: StatsByRequester - rows error: %w", ErrScanRow, err)
	}

	return stats, nil
}

func statusStatsQuery(period domain.StatsPeriod) squirrel.SelectBuilder {
	return withPeriod(psqlbuilder.Select("status", "COUNT(*)").From(table), period).
		GroupBy("status")
}

func requesterStatsQuery(period domain.StatsPeriod) squirrel.SelectBuilder {
	return withPeriod(psqlbuilder.Select("requester_id", "COUNT(*)", "COALESCE(SUM(package_price), 0)").From(table), period).
		GroupBy("requester_id").
		OrderBy("COUNT(*) DESC", "requester_id ASC")
}

func withPeriod(b squirrel.SelectBuilder, period domain.StatsPeriod) squirrel.SelectBuilder {
	if period.From != nil {
		b = b.Where(squirrel.GtOrEq{"created_at": *period.From})
	}
	if period.To != nil {
		b = b.Where(squirrel.Lt{"created_at": *period.To})
	}
	return b
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.ExtensionRequest, error) {
	var (
		req           domain.ExtensionRequest
		status        string
		paymentMethod string
	)

	err := row.Scan(
		&req.ID,
		&req.MappingID,
		&req.RequesterID,
		&req.AdditionalSessions,
		&req.PackageName,
		&req.PackagePrice,
		&req.Reason,
		&status,
		&paymentMethod,
		&req.PaymentReference,
		&req.ApprovedBy,
		&req.ApprovedAt,
		&req.AdminComment,
		&req.RejectedBy,
		&req.RejectedAt,
		&req.RejectionReason,
		&req.CompletedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.Status, err = domain.ParseExtensionStatus(status); err != nil {
		return nil, err
	}
	req.PaymentMethod = domain.PaymentMethod(paymentMethod)

	return &req, nil
}
