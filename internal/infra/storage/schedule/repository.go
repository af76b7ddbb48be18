package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-CounselingService/pkg/psqlbuilder"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

const table = "schedules"

var columns = []string{
	"id",
	"mapping_id",
	"consultant_id",
	"client_id",
	"schedule_date",
	"start_time",
	"end_time",
	"status",
	"title",
	"description",
	"cancellation_reason",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий расписаний консультаций
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписаний
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новое расписание.
// Проверка конфликтов выполняется вызывающим кодом в той же транзакции.
func (r *Repository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(table).
		Columns(
			"mapping_id",
			"consultant_id",
			"client_id",
			"schedule_date",
			"start_time",
			"end_time",
			"status",
			"title",
			"description",
		).
		Values(
			s.MappingID,
			s.ConsultantID,
			s.ClientID,
			s.Date.Format(domain.DateFormat),
			s.StartTime,
			s.EndTime,
			string(s.Status),
			s.Title,
			s.Description,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	created := *s
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return &created, nil
}

// GetByID получает расписание по ID, внутри транзакции с блокировкой строки
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
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

	s, err := scanSchedule(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - %w", ErrScanRow, err)
	}

	return s, nil
}

// List получает расписания с фильтрацией по консультанту, клиенту, маппингу, периоду и статусу.
//
// Выборка одного консультанта на одну дату внутри транзакции блокируется (FOR UPDATE):
// так create_schedule повторно проверяет конфликты по актуальным данным.
//
// Примеры:
//
//	// все активные сессии консультанта на дату
//	filter := domain.SchedulesFilter{ConsultantID: &id, StartDate: &date, EndDate: &date}
//
//	// история клиента включая отмененные
//	filter := domain.SchedulesFilter{ClientID: &id, IncludeCancelled: true}
func (r *Repository) List(ctx context.Context, filter domain.SchedulesFilter) ([]*domain.Schedule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := listQuery(filter, dbmetrics.IsInTransaction(ctx)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

func listQuery(filter domain.SchedulesFilter, inTx bool) squirrel.SelectBuilder {
	selectBuilder := psqlbuilder.Select(columns...).From(table)

	if filter.ConsultantID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"consultant_id": *filter.ConsultantID})
	}
	if filter.ClientID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.MappingID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"mapping_id": *filter.MappingID})
	}

	// Фильтрация по периоду
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"schedule_date": filter.StartDate.Format(domain.DateFormat)})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"schedule_date": filter.EndDate.Format(domain.DateFormat)})
	}

	// Фильтрация по статусу
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": statuses})
	} else if !filter.IncludeCancelled {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": string(domain.ScheduleCancelled)})
	}

	singleDay := filter.StartDate != nil && filter.EndDate != nil && domain.SameDate(*filter.StartDate, *filter.EndDate)

	if singleDay {
		selectBuilder = selectBuilder.OrderBy("start_time ASC", "id ASC")
	} else {
		selectBuilder = selectBuilder.OrderBy("schedule_date DESC", "start_time DESC", "id DESC")
	}

	if inTx && singleDay && filter.ConsultantID != nil {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	return selectBuilder
}

// UpdateStatus меняет статус, если в БД он все еще равен prev.
// reason сохраняется только для отмены.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, prev, next domain.ScheduleStatus, reason *string) (*domain.Schedule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update(table).
		Set("status", string(next)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": string(prev)})

	if next == domain.ScheduleCancelled {
		updateBuilder = updateBuilder.
			Set("cancellation_reason", reason).
			Set("cancelled_at", squirrel.Expr("NOW()"))
	}

	query, args, err := updateBuilder.Suffix("RETURNING " + strings.Join(columns, ", ")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	s, err := scanSchedule(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - execute update: %w", ErrExecQuery, err)
	}

	return s, nil
}

// CancelUpcomingByMapping отменяет все будущие SCHEDULED/PENDING сессии маппинга начиная с now.
// Возвращает количество отмененных записей.
func (r *Repository) CancelUpcomingByMapping(ctx context.Context, mappingID int64, now time.Time, reason string) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	today := now.Format(domain.DateFormat)
	currentTime := types.NewTimeString(now).String()

	query, args, err := psqlbuilder.Update(table).
		Set("status", string(domain.ScheduleCancelled)).
		Set("cancellation_reason", reason).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"mapping_id": mappingID,
			"status":     []string{string(domain.ScheduleScheduled), string(domain.SchedulePending)},
		}).
		Where(squirrel.Or{
			squirrel.Gt{"schedule_date": today},
			squirrel.And{
				squirrel.Eq{"schedule_date": today},
				squirrel.GtOrEq{"start_time": currentTime},
			},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: CancelUpcomingByMapping - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: CancelUpcomingByMapping - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: CancelUpcomingByMapping - get rows affected: %w", ErrExecQuery, err)
	}

	return rowsAffected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		s      domain.Schedule
		status string
	)

	err := row.Scan(
		&s.ID,
		&s.MappingID,
		&s.ConsultantID,
		&s.ClientID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&status,
		&s.Title,
		&s.Description,
		&s.CancellationReason,
		&s.CancelledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Неизвестный статус сохраняется как есть: такая запись не участвует в проверке конфликтов
	s.Status = domain.ScheduleStatus(status)
	if parsed, err := domain.ParseScheduleStatus(status); err == nil {
		s.Status = parsed
	}

	return &s, nil
}

// scanSchedules сканирует результаты запроса в слайс расписаний
func scanSchedules(rows *sql.Rows) ([]*domain.Schedule, error) {
	schedules := make([]*domain.Schedule, 0)

	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanSchedules - scan row: %w", ErrScanRow, err)
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanSchedules - rows error: %w", ErrScanRow, err)
	}

	return schedules, nil
}
