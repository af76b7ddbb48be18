package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// Request модели

// CreateMappingRequest запрос на создание маппинга
type CreateMappingRequest struct {
	ConsultantID     int64           `json:"consultantId"`
	ClientID         int64           `json:"clientId"`
	PackageName      string          `json:"packageName"`
	PackagePrice     decimal.Decimal `json:"packagePrice"`
	TotalSessions    int             `json:"totalSessions"`
	PaymentMethod    string          `json:"paymentMethod,omitempty"`
	PaymentReference string          `json:"paymentReference,omitempty"`
}

// UpdateMappingRequest запрос на изменение условий пакета
type UpdateMappingRequest struct {
	PackageName      string          `json:"packageName"`
	PackagePrice     decimal.Decimal `json:"packagePrice"`
	TotalSessions    int             `json:"totalSessions"`
	PaymentMethod    string          `json:"paymentMethod,omitempty"`
	PaymentReference string          `json:"paymentReference,omitempty"`
}

// ConfirmPaymentRequest подтверждение оплаты
type ConfirmPaymentRequest struct {
	PaymentMethod    string           `json:"paymentMethod"`
	PaymentReference string           `json:"paymentReference,omitempty"`
	PaymentAmount    *decimal.Decimal `json:"paymentAmount,omitempty"`
}

// ConfirmDepositRequest подтверждение поступления средств
type ConfirmDepositRequest struct {
	DepositReference string `json:"depositReference,omitempty"`
}

// ApproveRequest активация маппинга администратором
type ApproveRequest struct {
	AdminName string `json:"adminName"`
}

// TerminateRequest досрочное завершение маппинга
type TerminateRequest struct {
	Reason string `json:"reason"`
}

// ListMappingsRequest фильтр списка маппингов
type ListMappingsRequest struct {
	ConsultantID *int64
	ClientID     *int64
	Statuses     []string
}

// ToDomainTerms конвертирует запрос в условия пакета
func (r *CreateMappingRequest) ToDomainTerms() (domain.MappingTerms, error) {
	return toTerms(r.PackageName, r.PackagePrice, r.TotalSessions, r.PaymentMethod, r.PaymentReference)
}

// ToDomainTerms конвертирует запрос в условия пакета
func (r *UpdateMappingRequest) ToDomainTerms() (domain.MappingTerms, error) {
	return toTerms(r.PackageName, r.PackagePrice, r.TotalSessions, r.PaymentMethod, r.PaymentReference)
}

func toTerms(name string, price decimal.Decimal, total int, method, reference string) (domain.MappingTerms, error) {
	terms := domain.MappingTerms{
		PackageName:      name,
		PackagePrice:     price,
		TotalSessions:    total,
		PaymentReference: reference,
	}

	if method != "" {
		pm, err := domain.ParsePaymentMethod(method)
		if err != nil {
			return terms, err
		}
		terms.PaymentMethod = pm
	}

	return terms, nil
}

// ToDomainFilter конвертирует запрос в domain фильтр
func (r *ListMappingsRequest) ToDomainFilter() (domain.MappingsFilter, error) {
	filter := domain.MappingsFilter{
		ConsultantID: r.ConsultantID,
		ClientID:     r.ClientID,
	}

	for _, s := range r.Statuses {
		status, err := domain.ParseMappingStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	return filter, nil
}

// Response модели

// MappingResponse ответ с данными маппинга
type MappingResponse struct {
	ID                int64   `json:"id"`
	ConsultantID      int64   `json:"consultantId"`
	ClientID          int64   `json:"clientId"`
	Status            string  `json:"status"`
	TotalSessions     int     `json:"totalSessions"`
	UsedSessions      int     `json:"usedSessions"`
	RemainingSessions int     `json:"remainingSessions"`
	PackageName       string  `json:"packageName"`
	PackagePrice      string  `json:"packagePrice"`
	PaymentMethod     string  `json:"paymentMethod,omitempty"`
	PaymentReference  string  `json:"paymentReference,omitempty"`
	PaymentAmount     *string `json:"paymentAmount,omitempty"`

	PaymentConfirmedAt *time.Time `json:"paymentConfirmedAt,omitempty"`
	DepositReference   *string    `json:"depositReference,omitempty"`
	DepositConfirmedAt *time.Time `json:"depositConfirmedAt,omitempty"`
	ApprovedBy         *string    `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	TerminationReason  *string    `json:"terminationReason,omitempty"`
	TerminatedAt       *time.Time `json:"terminatedAt,omitempty"`

	// Признаки для UI
	Usable    bool `json:"usable"`
	Browsable bool `json:"browsable"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MappingListResponse ответ со списком маппингов
type MappingListResponse struct {
	Mappings []MappingResponse `json:"mappings"`
}

// FromDomainMapping конвертирует domain модель в DTO
func FromDomainMapping(m *domain.Mapping) *MappingResponse {
	if m == nil {
		return nil
	}

	resp := &MappingResponse{
		ID:                 m.ID,
		ConsultantID:       m.ConsultantID,
		ClientID:           m.ClientID,
		Status:             string(m.Status),
		TotalSessions:      m.TotalSessions,
		UsedSessions:       m.UsedSessions,
		RemainingSessions:  m.RemainingSessions,
		PackageName:        m.PackageName,
		PackagePrice:       m.PackagePrice.StringFixed(2),
		PaymentMethod:      string(m.PaymentMethod),
		PaymentReference:   m.PaymentReference,
		PaymentConfirmedAt: m.PaymentConfirmedAt,
		DepositReference:   m.DepositReference,
		DepositConfirmedAt: m.DepositConfirmedAt,
		ApprovedBy:         m.ApprovedBy,
		ApprovedAt:         m.ApprovedAt,
		TerminationReason:  m.TerminationReason,
		TerminatedAt:       m.TerminatedAt,
		Usable:             m.IsUsable(),
		Browsable:          m.IsBrowsable(),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	if m.PaymentAmount.Valid {
		amount := m.PaymentAmount.Decimal.StringFixed(2)
		resp.PaymentAmount = &amount
	}

	return resp
}

// FromDomainMappingList конвертирует список domain моделей в DTO
func FromDomainMappingList(mappings []*domain.Mapping) *MappingListResponse {
	resp := &MappingListResponse{
		Mappings: make([]MappingResponse, 0, len(mappings)),
	}

	for _, m := range mappings {
		resp.Mappings = append(resp.Mappings, *FromDomainMapping(m))
	}

	return resp
}
