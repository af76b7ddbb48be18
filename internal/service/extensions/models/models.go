package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// CreateExtensionRequest запрос на продление пакета
type CreateExtensionRequest struct {
	MappingID          int64           `json:"mappingId"`
	RequesterID        int64           `json:"-"` // из заголовка X-User-ID
	AdditionalSessions int             `json:"additionalSessions"`
	PackageName        string          `json:"packageName"`
	PackagePrice       decimal.Decimal `json:"packagePrice"`
	Reason             string          `json:"reason,omitempty"`
}

// ConfirmPaymentRequest подтверждение оплаты продления
type ConfirmPaymentRequest struct {
	PaymentMethod    string `json:"paymentMethod"`
	PaymentReference string `json:"paymentReference,omitempty"`
}

// ApproveRequest одобрение продления администратором
type ApproveRequest struct {
	Comment string `json:"comment,omitempty"`
}

// RejectRequest отклонение продления
type RejectRequest struct {
	Reason string `json:"reason"`
}

// ListExtensionsRequest фильтр списка запросов
type ListExtensionsRequest struct {
	MappingID   *int64
	RequesterID *int64
	Statuses    []string
}

// ToDomainFilter конвертирует запрос в domain фильтр
func (r *ListExtensionsRequest) ToDomainFilter() (domain.ExtensionsFilter, error) {
	filter := domain.ExtensionsFilter{MappingID: r.MappingID, RequesterID: r.RequesterID}

	for _, s := range r.Statuses {
		status, err := domain.ParseExtensionStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	return filter, nil
}

// ExtensionResponse ответ с данными запроса на продление
type ExtensionResponse struct {
	ID                 int64      `json:"id"`
	MappingID          int64      `json:"mappingId"`
	RequesterID        int64      `json:"requesterId"`
	AdditionalSessions int        `json:"additionalSessions"`
	PackageName        string     `json:"packageName"`
	PackagePrice       string     `json:"packagePrice"`
	Reason             *string    `json:"reason,omitempty"`
	Status             string     `json:"status"`
	PaymentMethod      string     `json:"paymentMethod,omitempty"`
	PaymentReference   string     `json:"paymentReference,omitempty"`
	ApprovedBy         *int64     `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	AdminComment       *string    `json:"adminComment,omitempty"`
	RejectedBy         *int64     `json:"rejectedBy,omitempty"`
	RejectedAt         *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason    *string    `json:"rejectionReason,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ExtensionListResponse ответ со списком запросов
type ExtensionListResponse struct {
	Requests []ExtensionResponse `json:"requests"`
}

// FromDomainExtension конвертирует domain модель в DTO
func FromDomainExtension(r *domain.ExtensionRequest) *ExtensionResponse {
	if r == nil {
		return nil
	}

	return &ExtensionResponse{
		ID:                 r.ID,
		MappingID:          r.MappingID,
		RequesterID:        r.RequesterID,
		AdditionalSessions: r.AdditionalSessions,
		PackageName:        r.PackageName,
		PackagePrice:       r.PackagePrice.StringFixed(2),
		Reason:             r.Reason,
		Status:             string(r.Status),
		PaymentMethod:      string(r.PaymentMethod),
		PaymentReference:   r.PaymentReference,
		ApprovedBy:         r.ApprovedBy,
		ApprovedAt:         r.ApprovedAt,
		AdminComment:       r.AdminComment,
		RejectedBy:         r.RejectedBy,
		RejectedAt:         r.RejectedAt,
		RejectionReason:    r.RejectionReason,
		CompletedAt:        r.CompletedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// FromDomainExtensionList конвертирует список domain моделей в DTO
func FromDomainExtensionList(requests []*domain.ExtensionRequest) *ExtensionListResponse {
	resp := &ExtensionListResponse{
		Requests: make([]ExtensionResponse, 0, len(requests)),
	}

	for _, r := range requests {
		resp.Requests = append(resp.Requests, *FromDomainExtension(r))
	}

	return resp
}

// StatisticsRequest период статистики. Даты включительно, nil означает без границы.
type StatisticsRequest struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// ToDomainPeriod переводит даты в полуинтервал [StartDate, EndDate+1 день)
func (r *StatisticsRequest) ToDomainPeriod() (domain.StatsPeriod, error) {
	var period domain.StatsPeriod

	if r.StartDate != nil && r.EndDate != nil && domain.DateOnly(*r.EndDate).Before(domain.DateOnly(*r.StartDate)) {
		return period, errors.New("endDate is before startDate")
	}

	if r.StartDate != nil {
		from := domain.DateOnly(*r.StartDate)
		period.From = &from
	}
	if r.EndDate != nil {
		to := domain.DateOnly(*r.EndDate).AddDate(0, 0, 1)
		period.To = &to
	}

	return period, nil
}

// StatusCounts количество запросов по статусам
type StatusCounts struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// RequesterStatsResponse сводка по заявителю
type RequesterStatsResponse struct {
	RequesterID   int64  `json:"requesterId"`
	RequesterName string `json:"requesterName,omitempty"`
	RequestCount  int64  `json:"requestCount"`
	TotalAmount   string `json:"totalAmount"`
}

// StatisticsResponse статистика запросов на продление
type StatisticsResponse struct {
	StartDate  *string                  `json:"startDate,omitempty"`
	EndDate    *string                  `json:"endDate,omitempty"`
	Period     StatusCounts             `json:"period"`
	LastWeek   StatusCounts             `json:"lastWeek"`
	Requesters []RequesterStatsResponse `json:"requesters"`
}

// FromDomainStatusCounts заполняет все статусы, отсутствующие в выборке считаются нулем
func FromDomainStatusCounts(counts map[domain.ExtensionStatus]int64) StatusCounts {
	result := StatusCounts{ByStatus: make(map[string]int64, len(domain.ExtensionStatuses))}

	for _, status := range domain.ExtensionStatuses {
		n := counts[status]
		result.ByStatus[string(status)] = n
		result.Total += n
	}

	return result
}

// FromDomainRequesterStats конвертирует сводку по заявителям в DTO
func FromDomainRequesterStats(stats []domain.RequesterStats) []RequesterStatsResponse {
	result := make([]RequesterStatsResponse, 0, len(stats))

	for _, st := range stats {
		result = append(result, RequesterStatsResponse{
			RequesterID:  st.RequesterID,
			RequestCount: st.RequestCount,
			TotalAmount:  st.TotalAmount.StringFixed(2),
		})
	}

	return result
}

// FormatDate дата в формате YYYY-MM-DD, nil для nil
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateFormat)
	return &s
}
